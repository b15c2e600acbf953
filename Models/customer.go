package Models

import "gorm.io/gorm"

// Customer is reference data; the billing core only uses the name to scope
// which memos are eligible for an invoice.
type Customer struct {
	gorm.Model
	Name    string `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Contact string `json:"contact" gorm:"size:255"`
	Area    string `json:"area" gorm:"size:255"`
}

func (Customer) TableName() string {
	return "customers"
}

type CustomerRequest struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact"`
	Area    string `json:"area"`
}
