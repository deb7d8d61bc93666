package model

import "github.com/google/uuid"

// newID fills an empty string primary key before insert
func newID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

// All returns every model for migrations
func All() []interface{} {
	return []interface{}{
		&Organization{},
		&Member{},
		&MemberAccess{},
		&BuyerSupplierLink{},
		&PurchaseOrder{},
		&InvoiceSeries{},
		&ConsultancyInvoice{},
		&Alert{},
	}
}
