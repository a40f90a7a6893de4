package books

import (
	"fmt"
	"strings"
)

// Region дата-центр Zoho
type Region struct {
	Code        string
	APIURL      string
	AccountsURL string
}

var regions = map[string]Region{
	"us": {Code: "us", APIURL: "https://www.zohoapis.com/books/v3", AccountsURL: "https://accounts.zoho.com"},
	"eu": {Code: "eu", APIURL: "https://www.zohoapis.eu/books/v3", AccountsURL: "https://accounts.zoho.eu"},
	"in": {Code: "in", APIURL: "https://www.zohoapis.in/books/v3", AccountsURL: "https://accounts.zoho.in"},
	"au": {Code: "au", APIURL: "https://www.zohoapis.com.au/books/v3", AccountsURL: "https://accounts.zoho.com.au"},
	"jp": {Code: "jp", APIURL: "https://www.zohoapis.jp/books/v3", AccountsURL: "https://accounts.zoho.jp"},
	"cn": {Code: "cn", APIURL: "https://www.zohoapis.com.cn/books/v3", AccountsURL: "https://accounts.zoho.com.cn"},
}

// LookupRegion возвращает регион по коду (us, eu, in, au, jp, cn)
func LookupRegion(code string) (Region, error) {
	r, ok := regions[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Region{}, fmt.Errorf("unknown zoho region %q", code)
	}
	return r, nil
}

// TokenURL адрес обмена токенов для региона
func (r Region) TokenURL() string {
	return r.AccountsURL + "/oauth/v2/token"
}
