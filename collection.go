package assoc

// Result materialized relationship, a *Collection for many cardinality and a *Scalar for one.
// Results are snapshots taken at load time.
type Result interface {
	Len() int
	Records() []*Record
	ViewOnly() bool
}

// Collection ordered related records without duplicate identities
type Collection struct {
	association *Association
	items       []*Record
	links       []*Record
}

// Len number of records
func (c *Collection) Len() int {
	return len(c.items)
}

// Records returns the related records in order
func (c *Collection) Records() []*Record {
	results := make([]*Record, len(c.items))
	copy(results, c.items)
	return results
}

// Links returns the association row of each record, nil entries for direct relationships
func (c *Collection) Links() []*Record {
	results := make([]*Record, len(c.links))
	copy(results, c.links)
	return results
}

// Contains whether record is part of the collection
func (c *Collection) Contains(record *Record) bool {
	for _, item := range c.items {
		if item == record {
			return true
		}
	}
	return false
}

// ViewOnly whether mutations through the collection are rejected
func (c *Collection) ViewOnly() bool {
	return c.association.Relationship.ViewOnly
}

// Project returns the exposed item params of every record
func (c *Collection) Project() []map[string]interface{} {
	results := make([]map[string]interface{}, len(c.items))
	for idx, item := range c.items {
		var link *Record
		if idx < len(c.links) {
			link = c.links[idx]
		}
		results[idx] = Project(c.association.Relationship, link, item)
	}
	return results
}

// Append links values to the owner
func (c *Collection) Append(values ...*Record) error {
	return c.association.Append(values...)
}

// Remove unlinks values from the owner
func (c *Collection) Remove(values ...*Record) error {
	return c.association.Remove(values...)
}

// Set replaces the related records with values
func (c *Collection) Set(values ...*Record) error {
	return c.association.Replace(values...)
}

// Scalar optional related record
type Scalar struct {
	association *Association
	value       *Record
	link        *Record
}

// Get returns the related record, ok is false when there's none
func (s *Scalar) Get() (*Record, bool) {
	return s.value, s.value != nil
}

// Len 0 or 1
func (s *Scalar) Len() int {
	if s.value == nil {
		return 0
	}
	return 1
}

// Records returns the related record as a slice
func (s *Scalar) Records() []*Record {
	if s.value == nil {
		return nil
	}
	return []*Record{s.value}
}

// ViewOnly whether mutations through the scalar are rejected
func (s *Scalar) ViewOnly() bool {
	return s.association.Relationship.ViewOnly
}

// Project returns the exposed item params, nil when there's no related record
func (s *Scalar) Project() map[string]interface{} {
	if s.value == nil {
		return nil
	}
	return Project(s.association.Relationship, s.link, s.value)
}

// Set replaces the related record, nil clears it
func (s *Scalar) Set(value *Record) error {
	if value == nil {
		return s.association.Clear()
	}
	return s.association.Replace(value)
}
