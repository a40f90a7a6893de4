package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"booksync/internal/app/books"
	"booksync/internal/domain/order"
)

// codeContactNameExists Zoho требует уникальное имя контакта
const codeContactNameExists = 3062

// FindOrCreateContact ищет контакт по email, иначе создает его в валюте заказа.
// Найденный контакт с другой валютой является ошибкой валидации.
func (s *Service) FindOrCreateContact(ctx context.Context, o *order.Order) (*books.Contact, error) {
	email := o.Email()
	if email == "" {
		return nil, validationErrorf("order #%s has no billing email", o.Reference())
	}

	existing, err := s.books.FindContactByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find contact %s: %w", email, err)
	}

	if existing != nil {
		if err := checkCurrency(existing, o); err != nil {
			return nil, err
		}
		s.refreshContact(ctx, existing, o)
		return existing, nil
	}

	currencyID, err := s.books.CurrencyID(ctx, o.Currency)
	if err != nil {
		return nil, fmt.Errorf("resolve currency %s: %w", o.Currency, err)
	}
	if currencyID == "" {
		return nil, validationErrorf("currency %s is not enabled in Zoho Books", o.Currency)
	}

	contact := books.Contact{
		ContactName:     o.CustomerName(),
		CompanyName:     o.Billing.Company,
		ContactType:     "customer",
		Email:           email,
		Phone:           o.Billing.Phone,
		CurrencyID:      currencyID,
		BillingAddress:  mapAddress(o.Billing),
		ShippingAddress: mapAddress(o.Shipping),
		ContactPersons: []books.ContactPerson{{
			FirstName:        o.Billing.FirstName,
			LastName:         o.Billing.LastName,
			Email:            email,
			Phone:            o.Billing.Phone,
			IsPrimaryContact: true,
		}},
	}

	created, err := s.books.CreateContact(ctx, contact)
	var apiErr *books.APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeContactNameExists {
		// одноименный контакт с другим email
		contact.ContactName = fmt.Sprintf("%s (%s)", contact.ContactName, email)
		created, err = s.books.CreateContact(ctx, contact)
	}
	if err != nil {
		return nil, fmt.Errorf("create contact %s: %w", email, err)
	}

	s.log.Info("contact created", "order_id", o.ID, "contact_id", created.ContactID)
	return created, nil
}

func checkCurrency(contact *books.Contact, o *order.Order) error {
	if contact.CurrencyCode == "" || strings.EqualFold(contact.CurrencyCode, o.Currency) {
		return nil
	}
	return validationErrorf(
		"contact %s (%s) uses currency %s but order #%s is in %s; the currency of an existing contact cannot be changed",
		contact.ContactName, contact.ContactID, contact.CurrencyCode, o.Reference(), o.Currency,
	)
}

// refreshContact обновляет контакт, только если данные заказа отличаются.
// Ошибка обновления не мешает синхронизации.
func (s *Service) refreshContact(ctx context.Context, existing *books.Contact, o *order.Order) {
	current := existing
	if existing.BillingAddress == nil && existing.ShippingAddress == nil {
		full, err := s.books.GetContact(ctx, existing.ContactID)
		if err != nil {
			s.log.Warn("failed to load contact details", "contact_id", existing.ContactID, "error", err)
			return
		}
		current = full
	}

	update, changed := diffContact(current, o)
	if !changed {
		return
	}
	if _, err := s.books.UpdateContact(ctx, existing.ContactID, update); err != nil {
		s.log.Warn("failed to update contact", "contact_id", existing.ContactID, "order_id", o.ID, "error", err)
		return
	}
	s.log.Debug("contact updated", "contact_id", existing.ContactID, "order_id", o.ID)
}

// diffContact сравнивает имя, телефон, компанию и адреса. Валюта не трогается.
func diffContact(current *books.Contact, o *order.Order) (books.ContactUpdate, bool) {
	var update books.ContactUpdate
	changed := false

	if name := o.CustomerName(); name != "" && name != current.ContactName {
		update.ContactName = name
		changed = true
	}
	if o.Billing.Phone != "" && o.Billing.Phone != current.Phone {
		update.Phone = o.Billing.Phone
		changed = true
	}
	if o.Billing.Company != "" && o.Billing.Company != current.CompanyName {
		update.CompanyName = o.Billing.Company
		changed = true
	}
	if billing := mapAddress(o.Billing); !sameAddress(billing, current.BillingAddress) {
		update.BillingAddress = billing
		changed = true
	}
	if shipping := mapAddress(o.Shipping); !sameAddress(shipping, current.ShippingAddress) {
		update.ShippingAddress = shipping
		changed = true
	}
	return update, changed
}

func mapAddress(a order.Address) *books.Address {
	if a.Address1 == "" && a.City == "" && a.Country == "" && a.Postcode == "" {
		return nil
	}
	return &books.Address{
		Attention: a.FullName(),
		Address:   a.Address1,
		Street2:   a.Address2,
		City:      a.City,
		State:     a.State,
		Zip:       a.Postcode,
		Country:   a.Country,
		Phone:     a.Phone,
	}
}

func sameAddress(a, b *books.Address) bool {
	if a == nil {
		// пустой адрес в заказе не затирает удаленный
		return true
	}
	if b == nil {
		return false
	}
	return *a == *b
}
