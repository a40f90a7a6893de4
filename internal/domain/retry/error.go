package retry

import "errors"

var ErrRemoteUnavailable = errors.New("zoho books is unavailable, retry batch skipped")
