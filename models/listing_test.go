package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListingFieldsFollowFieldOrder(t *testing.T) {
	l := Listing{
		Title:            "Accountant",
		DetailURL:        "https://www.brightermonday.co.ke/listings/accountant-1",
		BriefDescription: "Keep the books",
		Location:         "Nairobi",
		Salary:           "KSh50,000",
		EmploymentType:   "Full Time",
		PostedBy:         "Acme Ltd",
		Category:         "Finance",
	}

	fields := l.Fields()
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}

	assert.Equal(t, FieldOrder, keys)
	assert.Equal(t, "https://www.brightermonday.co.ke/listings/accountant-1", fields[1].Value)
	assert.Equal(t, "Finance", fields[7].Value)
}

func TestListingHasSalary(t *testing.T) {
	assert.True(t, Listing{Salary: "KSh1"}.HasSalary())
	assert.True(t, Listing{Salary: ""}.HasSalary())
	assert.False(t, Listing{Salary: SalaryNotProvided}.HasSalary())
}
