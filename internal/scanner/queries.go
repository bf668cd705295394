package scanner

// Queries locate type-level declarations per grammar. Every pattern
// captures the declaration as @def and its name as @name.
var Queries = map[string]string{
	"python": `
		(class_definition name: (identifier) @name) @def
	`,
	"javascript": `
		(class_declaration name: (identifier) @name) @def
	`,
	"typescript": `
		(class_declaration name: (type_identifier) @name) @def
		(abstract_class_declaration name: (type_identifier) @name) @def
		(interface_declaration name: (type_identifier) @name) @def
		(enum_declaration name: (identifier) @name) @def
	`,
	"tsx": `
		(class_declaration name: (type_identifier) @name) @def
		(abstract_class_declaration name: (type_identifier) @name) @def
		(interface_declaration name: (type_identifier) @name) @def
		(enum_declaration name: (identifier) @name) @def
	`,
	"go": `
		(type_spec name: (type_identifier) @name) @def
		(method_declaration name: (field_identifier) @name) @def
	`,
}
