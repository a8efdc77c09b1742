// Package snmpprobe provides a pre-connection reachability probe over SNMP.
package snmpprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/nlarkin/junoctl/internal/module"
)

func init() {
	module.Register(&Module{})
}

// System group OIDs read by the probe.
const (
	oidSysDescr  = ".1.3.6.1.2.1.1.1.0"
	oidSysUpTime = ".1.3.6.1.2.1.1.3.0"
	oidSysName   = ".1.3.6.1.2.1.1.5.0"
)

// Module reads the SNMP system group from the target host. It runs
// before any CLI session exists, so unreachable devices fail cheaply.
type Module struct{}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "snmpprobe"
}

// NeedsSession reports that the module runs without a device session.
func (m *Module) NeedsSession() bool {
	return false
}

// Run executes the snmpprobe module.
//
// Parameters:
//   - community (string): SNMP v2c community (default "public")
//   - port (int): SNMP port (default 161)
func (m *Module) Run(ctx context.Context, target *module.Target, params map[string]any) (*module.Result, error) {
	community := module.GetString(params, "community", "public")
	port := module.GetInt(params, "port", 161)

	timeout := 5 * time.Second
	if target.Config.Timeout > 0 {
		timeout = time.Duration(target.Config.Timeout) * time.Second
	}

	snmp := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    target.Config.Host,
		Port:      uint16(port),
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   1,
	}

	if err := snmp.Connect(); err != nil {
		return nil, fmt.Errorf("snmp connect to %s failed: %w", target.Config.Host, err)
	}
	defer snmp.Conn.Close()

	packet, err := snmp.Get([]string{oidSysDescr, oidSysUpTime, oidSysName})
	if err != nil {
		return nil, fmt.Errorf("snmp get from %s failed: %w", target.Config.Host, err)
	}

	data := make(map[string]any)
	for _, v := range packet.Variables {
		switch v.Name {
		case oidSysDescr:
			data["descr"] = octetString(v)
		case oidSysName:
			data["name"] = octetString(v)
		case oidSysUpTime:
			data["uptime"] = gosnmp.ToBigInt(v.Value).Uint64()
		}
	}

	return module.UnchangedWithData("device responded to snmp", data), nil
}

func octetString(v gosnmp.SnmpPDU) string {
	if b, ok := v.Value.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v.Value)
}

// Ensure Module implements the module.Module interface.
var _ module.Module = (*Module)(nil)
