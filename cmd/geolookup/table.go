package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/manzanit0/geosearch/pkg/geocode"
)

func renderCandidates(w io.Writer, candidates []geocode.Candidate) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Address", "Area", "Coordinates", "Source"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for i, c := range candidates {
		table.Append([]string{
			fmt.Sprint(i + 1),
			c.ShortLabel,
			strings.Join(c.RegionContext, ", "),
			c.Coordinates.String(),
			c.Provider,
		})
	}

	table.Render()
}

func renderAddress(w io.Writer, p geocode.Coordinates, address string, degraded bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Coordinates", "Address"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	if degraded {
		address += " (no provider answered)"
	}
	table.Append([]string{p.String(), address})

	table.Render()
}
