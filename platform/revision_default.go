//go:build !sensterm && !rev01

package platform

var selectedWiring = DeRFNodeWiring
