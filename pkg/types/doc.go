// Package types defines the Bean record, the relation kinds and filters,
// the Store interface, and the standard error values for BeanBase.
//
// A Bean is a sparse attribute map with a type name and an int64 identity
// assigned by a Store on first persistence. Stores, the relation engine, and
// the model facade all exchange Beans through the interfaces declared here.
package types
