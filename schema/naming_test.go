package schema

import (
	"testing"
)

func TestToDBName(t *testing.T) {
	var maps = map[string]string{
		"":                  "",
		"x":                 "x",
		"X":                 "x",
		"userRestrictions":  "user_restrictions",
		"EntityAddress":     "entity_address",
		"PastRentalHistory": "past_rental_history",
		"EmployeeID":        "employee_id",
		"SKU_ID":            "sku_id",
		"FieldX":            "field_x",
		"HTTPServer":        "http_server",
		"user_roles":        "user_roles",
	}

	for key, value := range maps {
		if toDBName(key) != value {
			t.Errorf("%v toName should equal %v, but got %v", key, value, toDBName(key))
		}
	}
}

func TestForeignKeyName(t *testing.T) {
	cases := []struct {
		ns         NamingStrategy
		entityType string
		primaryKey string
		expect     string
	}{
		{NamingStrategy{}, "user", "user_id", "user_id"},
		{NamingStrategy{}, "users", "id", "user_id"},
		{NamingStrategy{}, "roles", "ID", "role_id"},
		{NamingStrategy{}, "favorite_properties", "id", "favorite_property_id"},
		{NamingStrategy{}, "user", "", "user_id"},
		{NamingStrategy{KeySuffix: "key"}, "company", "", "company_key"},
		{NamingStrategy{}, "Employee", "EmployeeID", "employee_id"},
	}

	for _, c := range cases {
		if got := c.ns.ForeignKeyName(c.entityType, c.primaryKey); got != c.expect {
			t.Errorf("ForeignKeyName(%v, %v) should equal %v, but got %v", c.entityType, c.primaryKey, c.expect, got)
		}
	}
}
