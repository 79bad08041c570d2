package netlist

// PortDirection is the signal flow of a module port.
type PortDirection string

const (
	DirectionInput  PortDirection = "input"
	DirectionOutput PortDirection = "output"
	DirectionInout  PortDirection = "inout"
)

// ParsePortDirection maps source text to a PortDirection. The second return
// is false for anything that is not one of the three directions.
func ParsePortDirection(s string) (PortDirection, bool) {
	switch PortDirection(s) {
	case DirectionInput, DirectionOutput, DirectionInout:
		return PortDirection(s), true
	}
	return "", false
}

// Port is a named, directioned interface point on a module declaration.
// Ports are value records; structurally equal ports collapse to one entry in
// a module's port set.
type Port struct {
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Direction PortDirection `json:"direction"`
}

// Instance is one instantiation of a module under a local instance name.
type Instance struct {
	Name       string `json:"name"`
	ModuleName string `json:"module_name"`
}

// Connection is a single named binding at an instantiation site: the
// parent-scope signal/expression Name drives port PortName of Instance.
type Connection struct {
	Name     string   `json:"name"`
	PortName string   `json:"port_name"`
	Instance Instance `json:"instance"`
}

// Module is the reconstructed record for one module declaration: its
// deduplicated port set and its connections in source encounter order.
type Module struct {
	Name        string       `json:"name"`
	Ports       []Port       `json:"ports"`
	Connections []Connection `json:"connections"`
}
