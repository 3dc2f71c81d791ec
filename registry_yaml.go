package assoc

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gorm.io/assoc/schema"
)

// definitionFile one relationship as declared in a registry file
type definitionFile struct {
	Target           string                 `yaml:"target"`
	AssociationClass string                 `yaml:"association_class"`
	EntityParamKey   string                 `yaml:"entity_param_key"`
	EntityParamsAttr map[string]string      `yaml:"entity_params_attr"`
	ItemParamsAttr   map[string]string      `yaml:"item_params_attr"`
	PrimaryFilter    map[string]interface{} `yaml:"primary_filter"`
	SecondaryFilter  map[string]interface{} `yaml:"secondary_filter"`
	ForeignKeys      []string               `yaml:"foreign_keys"`
	Cardinality      string                 `yaml:"cardinality"`
	Cascade          string                 `yaml:"cascade"`
	ViewOnly         bool                   `yaml:"viewonly"`
	BackReference    string                 `yaml:"back_reference"`
	Lazy             string                 `yaml:"lazy"`
	OrderBy          []string               `yaml:"order_by"`
}

// LoadRegistry reads a registry file, per owner type a mapping of attribute name to definition:
//
//	user:
//	  address:
//	    target: address
//	    association_class: EntityAddress
//	    entity_param_key: address
//	    entity_params_attr: {user_id: entity_id}
//	    item_params_attr: {emergency_address: emergency}
//	    secondary_filter: {emergency_address: false}
//	    cascade: all, delete
//	    viewonly: true
//	    lazy: selectin
//
// Type names may be given as class names, EntityAddress is read as entity_address. Generated
// dumps are read as they are: entity_params_attr may map association columns to owner
// attributes and pin the discriminator, {entity_id: user_id, entity_type: user}.
func LoadRegistry(r io.Reader) (*Registry, error) {
	var (
		root  yaml.Node
		namer = schema.NamingStrategy{}
	)

	if err := yaml.NewDecoder(r).Decode(&root); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: failed to decode registry: %v", ErrConfiguration, err)
	}

	if root.Kind == 0 {
		return NewRegistry()
	}

	document := &root
	if document.Kind == yaml.DocumentNode && len(document.Content) > 0 {
		document = document.Content[0]
	}

	if document.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: registry should map entity types to relationships, line %d", ErrConfiguration, document.Line)
	}

	var definitions []schema.Definition
	for i := 0; i+1 < len(document.Content); i += 2 {
		owner, attributes := document.Content[i], document.Content[i+1]
		if attributes.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: relationships of %v should be a mapping, line %d", ErrConfiguration, owner.Value, attributes.Line)
		}

		for j := 0; j+1 < len(attributes.Content); j += 2 {
			name, node := attributes.Content[j], attributes.Content[j+1]

			var file definitionFile
			if err := node.Decode(&file); err != nil {
				return nil, fmt.Errorf("%w: %v.%v: %v", ErrConfiguration, owner.Value, name.Value, err)
			}

			def, err := file.definition(namer, namer.ColumnName(owner.Value), name.Value)
			if err != nil {
				return nil, err
			}
			definitions = append(definitions, def)
		}
	}

	return NewRegistry(definitions...)
}

// LoadRegistryFile reads the registry file at path
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadRegistry(f)
}

func (file definitionFile) definition(namer schema.Namer, owner, name string) (def schema.Definition, err error) {
	if file.Target == "" {
		return def, fmt.Errorf("%w: %v.%v has no target", ErrConfiguration, owner, name)
	}

	def = schema.Definition{
		Owner:            owner,
		Name:             name,
		Target:           namer.ColumnName(file.Target),
		EntityParamKey:   file.EntityParamKey,
		EntityParamsAttr: file.EntityParamsAttr,
		ItemParamsAttr:   file.ItemParamsAttr,
		PrimaryFilter:    file.PrimaryFilter,
		SecondaryFilter:  file.SecondaryFilter,
		ForeignKeys:      file.ForeignKeys,
		Cardinality:      schema.Cardinality(strings.ToLower(file.Cardinality)),
		ViewOnly:         file.ViewOnly,
		BackReference:    file.BackReference,
		OrderBy:          file.OrderBy,
	}

	// dumps name the target itself as association class of a direct relationship
	if class := namer.ColumnName(file.AssociationClass); class != def.Target {
		def.AssociationClass = class
	}

	if def.Cascade, err = schema.ParseCascade(file.Cascade); err != nil {
		return def, fmt.Errorf("%v.%v: %w", owner, name, err)
	}

	if def.Loading, err = schema.ParseLoading(file.Lazy); err != nil {
		return def, fmt.Errorf("%v.%v: %w", owner, name, err)
	}

	return def, nil
}
