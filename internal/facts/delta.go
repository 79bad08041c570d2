package facts

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Files = diffFileRows(from.Files, to.Files)
	out.Modules = diffModuleRows(from.Modules, to.Modules)
	out.Ports = diffPortRows(from.Ports, to.Ports)
	out.Instances = diffInstanceRows(from.Instances, to.Instances)
	out.Connections = diffConnectionRows(from.Connections, to.Connections)

	return out
}

func emptyTables() Tables {
	return Tables{
		Files:       []FileRow{},
		Modules:     []ModuleRow{},
		Ports:       []PortRow{},
		Instances:   []InstanceRow{},
		Connections: []ConnectionRow{},
	}
}

func diffFileRows(from, to []FileRow) []FileRow {
	return diffRows(from, to, func(r FileRow) string {
		return r.Path + "|" + r.Library + "|" + boolKey(r.IsThirdParty)
	})
}

func diffModuleRows(from, to []ModuleRow) []ModuleRow {
	return diffRows(from, to, func(r ModuleRow) string {
		return r.Name + "|" + r.File
	})
}

func diffPortRows(from, to []PortRow) []PortRow {
	return diffRows(from, to, func(r PortRow) string {
		return r.Module + "|" + r.Name + "|" + r.Direction + "|" + r.Type + "|" + r.File
	})
}

func diffInstanceRows(from, to []InstanceRow) []InstanceRow {
	return diffRows(from, to, func(r InstanceRow) string {
		return r.Module + "|" + r.Name + "|" + r.Target + "|" + r.File
	})
}

func diffConnectionRows(from, to []ConnectionRow) []ConnectionRow {
	return diffRows(from, to, func(r ConnectionRow) string {
		return r.Module + "|" + r.Instance + "|" + r.Port + "|" + r.Signal + "|" + r.File
	})
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]T, len(from))
	for _, row := range from {
		fromSet[key(row)] = row
	}
	var diff []T
	for _, row := range to {
		rowKey := key(row)
		if _, ok := fromSet[rowKey]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
