package tests

import (
	"gorm.io/assoc/schema"
)

// A user has many addresses (polymorphic through entity_address, split by emergency_address),
// many favorites (has many), many roles (many to many through user_roles), many companies
// (polymorphic through entity_company) and a rental history (has many, owned).
// Roles, companies and rental history records share entity_address with users.
// An employee has a manager and reports (single-table).
var (
	userID = schema.ColumnSpec{Name: "user_id", Type: schema.String, PrimaryKey: true}

	entityTypes = []string{"user", "role", "company", "past_rental_history"}
)

// Catalog returns a fresh catalog of the rental schema
func Catalog() *schema.StaticCatalog {
	return schema.NewStaticCatalog().
		Add("user",
			userID,
			schema.ColumnSpec{Name: "name", Type: schema.String},
			schema.ColumnSpec{Name: "email", Type: schema.String, Nullable: true},
		).
		Add("role",
			schema.ColumnSpec{Name: "role_id", Type: schema.String, PrimaryKey: true},
			schema.ColumnSpec{Name: "name", Type: schema.String},
		).
		Add("company",
			schema.ColumnSpec{Name: "company_id", Type: schema.String, PrimaryKey: true},
			schema.ColumnSpec{Name: "name", Type: schema.String},
		).
		Add("address",
			schema.ColumnSpec{Name: "address_id", Type: schema.String, PrimaryKey: true},
			schema.ColumnSpec{Name: "line1", Type: schema.String},
			schema.ColumnSpec{Name: "city", Type: schema.String},
		).
		Add("entity_address",
			schema.ColumnSpec{Name: "entity_address_id", Type: schema.UUID, PrimaryKey: true},
			schema.ColumnSpec{Name: "entity_id", Type: schema.String, Polymorphic: true},
			schema.ColumnSpec{Name: "entity_type", Type: schema.Enum, Discriminator: true, EnumValues: entityTypes},
			schema.ColumnSpec{Name: "address_id", Type: schema.String, ForeignKeyOf: "address"},
			schema.ColumnSpec{Name: "emergency_address", Type: schema.Bool},
			schema.ColumnSpec{Name: "is_primary", Type: schema.Bool, Nullable: true},
		).
		Add("entity_company",
			schema.ColumnSpec{Name: "entity_company_id", Type: schema.UUID, PrimaryKey: true},
			schema.ColumnSpec{Name: "entity_id", Type: schema.String, Polymorphic: true},
			schema.ColumnSpec{Name: "entity_type", Type: schema.Enum, Discriminator: true, EnumValues: []string{"user", "role"}},
			schema.ColumnSpec{Name: "company_id", Type: schema.String, ForeignKeyOf: "company"},
		).
		Add("user_roles",
			schema.ColumnSpec{Name: "user_id", Type: schema.String, PrimaryKey: true, ForeignKeyOf: "user"},
			schema.ColumnSpec{Name: "role_id", Type: schema.String, PrimaryKey: true, ForeignKeyOf: "role"},
		).
		Add("favorite_properties",
			schema.ColumnSpec{Name: "favorite_property_id", Type: schema.String, PrimaryKey: true},
			schema.ColumnSpec{Name: "user_id", Type: schema.String, ForeignKeyOf: "user", Nullable: true},
			schema.ColumnSpec{Name: "property_id", Type: schema.String},
			schema.ColumnSpec{Name: "created_at", Type: schema.Time, Nullable: true},
		).
		Add("past_rental_history",
			schema.ColumnSpec{Name: "past_rental_history_id", Type: schema.String, PrimaryKey: true},
			schema.ColumnSpec{Name: "user_id", Type: schema.String, ForeignKeyOf: "user", Nullable: true},
			schema.ColumnSpec{Name: "landlord", Type: schema.String},
		).
		Add("employee",
			schema.ColumnSpec{Name: "employee_id", Type: schema.String, PrimaryKey: true},
			schema.ColumnSpec{Name: "manager_id", Type: schema.String, ForeignKeyOf: "employee", Nullable: true},
			schema.ColumnSpec{Name: "name", Type: schema.String},
		)
}

// Definitions returns the relationships of the rental schema in declaration order
func Definitions() []schema.Definition {
	return []schema.Definition{
		{
			Owner: "user", Name: "address", Target: "address",
			AssociationClass: "entity_address",
			EntityParamsAttr: map[string]string{"user_id": "entity_id"},
			ItemParamsAttr:   map[string]string{"emergency_address": "emergency", "city": "city"},
			SecondaryFilter:  map[string]interface{}{"emergency_address": false},
			Cascade:          schema.CascadeAll,
			ViewOnly:         true,
			Loading:          schema.Eager,
		},
		{
			Owner: "user", Name: "emergency_addresses", Target: "address",
			AssociationClass: "entity_address",
			EntityParamKey:   "address",
			EntityParamsAttr: map[string]string{"user_id": "entity_id"},
			SecondaryFilter:  map[string]interface{}{"emergency_address": true},
			Cascade:          schema.CascadeAll,
		},
		{
			Owner: "user", Name: "favorites", Target: "favorite_properties",
			Cascade:       schema.CascadeSaveUpdate,
			BackReference: "user",
			OrderBy:       []string{"property_id"},
		},
		{
			Owner: "favorite_properties", Name: "user", Target: "user",
			Cardinality:   schema.One,
			BackReference: "favorites",
		},
		{
			Owner: "user", Name: "roles", Target: "role",
			AssociationClass: "user_roles",
			Cascade:          schema.CascadeSaveUpdate,
			BackReference:    "users",
		},
		{
			Owner: "role", Name: "users", Target: "user",
			AssociationClass: "user_roles",
			BackReference:    "roles",
		},
		{
			Owner: "user", Name: "companies", Target: "company",
			AssociationClass: "entity_company",
			Cascade:          schema.CascadeSaveUpdate | schema.CascadeDelete,
		},
		{
			Owner: "user", Name: "rental_history", Target: "past_rental_history",
			Cascade:       schema.CascadeAll | schema.CascadeDeleteOrphan,
			BackReference: "user",
		},
		{
			Owner: "past_rental_history", Name: "user", Target: "user",
			Cardinality:   schema.One,
			BackReference: "rental_history",
		},
		{
			Owner: "past_rental_history", Name: "address", Target: "address",
			AssociationClass: "entity_address",
			SecondaryFilter:  map[string]interface{}{"emergency_address": false},
			ViewOnly:         true,
		},
		{
			Owner: "role", Name: "address", Target: "address",
			AssociationClass: "entity_address",
			EntityParamsAttr: map[string]string{"role_id": "entity_id"},
			SecondaryFilter:  map[string]interface{}{"emergency_address": false},
			Cascade:          schema.CascadeSaveUpdate,
		},
		{
			Owner: "employee", Name: "manager", Target: "employee",
			Cardinality:   schema.One,
			BackReference: "reports",
		},
		{
			Owner: "employee", Name: "reports", Target: "employee",
			BackReference: "manager",
			OrderBy:       []string{"name"},
		},
	}
}

// Lookup finds a definition of Definitions by owner and name
func Lookup(entityType, name string) (*schema.Definition, bool) {
	for _, def := range Definitions() {
		if def.Owner == entityType && def.Name == name {
			def := def
			return &def, true
		}
	}
	return nil, false
}
