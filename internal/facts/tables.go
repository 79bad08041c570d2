package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/sv-netlist/internal/netlist"
)

// Tables is the relational fact model exported for downstream engines.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Files       []FileRow       `json:"files"`
	Modules     []ModuleRow     `json:"modules"`
	Ports       []PortRow       `json:"ports"`
	Instances   []InstanceRow   `json:"instances"`
	Connections []ConnectionRow `json:"connections"`
}

type FileRow struct {
	Path         string `json:"path"`
	Library      string `json:"library"`
	IsThirdParty bool   `json:"is_third_party"`
}

type ModuleRow struct {
	Name string `json:"name"`
	File string `json:"file"`
}

type PortRow struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Type      string `json:"type"`
	File      string `json:"file"`
}

type InstanceRow struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Target string `json:"target"`
	File   string `json:"file"`
}

type ConnectionRow struct {
	Module   string `json:"module"`
	Instance string `json:"instance"`
	Port     string `json:"port"`
	Signal   string `json:"signal"`
	File     string `json:"file"`
}

// FileNetlist is the per-file result of the extraction pass: the topology
// records plus the ordered instance map for one source file.
type FileNetlist struct {
	File       string
	Library    string
	ThirdParty bool
	Modules    []netlist.Module
	Instances  map[string][]netlist.Instance
}

// BuildTables normalizes per-file netlists into the relational model.
// Instance and connection rows keep their per-module encounter order; files
// are sorted by path.
func BuildTables(results []FileNetlist) Tables {
	tables := emptyTables()

	seenFiles := make(map[string]bool)
	for _, r := range results {
		if !seenFiles[r.File] {
			seenFiles[r.File] = true
			tables.Files = append(tables.Files, FileRow{
				Path:         r.File,
				Library:      r.Library,
				IsThirdParty: r.ThirdParty,
			})
		}

		for _, m := range r.Modules {
			tables.Modules = append(tables.Modules, ModuleRow{
				Name: m.Name,
				File: r.File,
			})

			for _, p := range m.Ports {
				tables.Ports = append(tables.Ports, PortRow{
					Module:    m.Name,
					Name:      p.Name,
					Direction: string(p.Direction),
					Type:      p.Type,
					File:      r.File,
				})
			}

			for _, c := range m.Connections {
				tables.Connections = append(tables.Connections, ConnectionRow{
					Module:   m.Name,
					Instance: c.Instance.Name,
					Port:     c.PortName,
					Signal:   c.Name,
					File:     r.File,
				})
			}

			for _, inst := range r.Instances[m.Name] {
				tables.Instances = append(tables.Instances, InstanceRow{
					Module: m.Name,
					Name:   inst.Name,
					Target: inst.ModuleName,
					File:   r.File,
				})
			}
		}
	}

	sort.Slice(tables.Files, func(i, j int) bool { return tables.Files[i].Path < tables.Files[j].Path })

	return tables
}
