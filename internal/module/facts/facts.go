// Package facts gathers basic inventory facts from the target device.
package facts

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nlarkin/junoctl/internal/device"
	"github.com/nlarkin/junoctl/internal/module"
)

func init() {
	module.Register(&Module{})
}

// Module collects hostname, model and software version from the device.
// It works over any transport, since "show version" in xml format
// yields the same software-information document everywhere.
type Module struct{}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "facts"
}

// NeedsSession reports that the module requires an open session.
func (m *Module) NeedsSession() bool {
	return true
}

// Run executes the facts module. It takes no parameters.
func (m *Module) Run(ctx context.Context, target *module.Target, params map[string]any) (*module.Result, error) {
	result, err := target.Session.Execute(ctx, "show version", device.FormatXML)
	if err != nil {
		return nil, fmt.Errorf("failed to query software information: %w", err)
	}

	info, err := parseSoftwareInformation(result.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse software information: %w", err)
	}

	return module.UnchangedWithData("facts gathered", map[string]any{
		"hostname": info.HostName,
		"model":    info.Model,
		"version":  info.Version,
	}), nil
}

// softwareInformation is the subset of the Junos reply the module uses.
type softwareInformation struct {
	HostName string `xml:"host-name"`
	Model    string `xml:"product-model"`
	Version  string `xml:"junos-version"`
}

// parseSoftwareInformation digs software-information out of a reply
// document regardless of the surrounding element, since the CLI and
// NETCONF wrap it differently.
func parseSoftwareInformation(doc string) (*softwareInformation, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("no software-information element found")
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "software-information" {
			continue
		}
		var info softwareInformation
		if err := dec.DecodeElement(&info, &start); err != nil {
			return nil, err
		}
		return &info, nil
	}
}

// Ensure Module implements the module.Module interface.
var _ module.Module = (*Module)(nil)
