// Package normalize turns the option labels offered by the assistant into canonical values.
//
// Every function here is pure. Unparseable labels never fail a transition: they map to
// DefaultValue so the conversation keeps moving and the backend receives a well-formed query.
package normalize
