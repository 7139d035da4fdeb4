// Package goble turns go-ble advertisements into the native scan records the event
// dispatcher consumes, so a real radio stack can feed the same path as a scripted one.
package goble

import (
	"encoding/base64"
	"strings"

	"github.com/go-ble/ble"
	"github.com/srg/blewire/pkg/event"
	"github.com/srg/blewire/pkg/native"
)

// DefaultMTU is the ATT MTU a device has before any exchange.
const DefaultMTU = 23

// ScanRecord builds the native scan record of adv. Optional advertisement parts are
// only present when advertised.
func ScanRecord(adv ble.Advertisement) native.Record {
	rec := native.Record{
		"id":            native.String(strings.ToUpper(adv.Addr().String())),
		"rssi":          native.Int32(int32(adv.RSSI())),
		"mtu":           native.Int32(DefaultMTU),
		"isConnectable": native.Bool(adv.Connectable()),
	}
	if name := adv.LocalName(); name != "" {
		rec["name"] = native.String(name)
	}
	if md := adv.ManufacturerData(); len(md) > 0 {
		rec["manufacturerData"] = native.String(base64.StdEncoding.EncodeToString(md))
	}
	if uuids := adv.Services(); len(uuids) > 0 {
		rec["serviceUUIDs"] = uuidList(uuids)
	}
	if sd := adv.ServiceData(); len(sd) > 0 {
		data := make(native.Record, len(sd))
		for _, d := range sd {
			data[d.UUID.String()] = native.String(base64.StdEncoding.EncodeToString(d.Data))
		}
		rec["serviceData"] = native.RecordOf(data)
	}
	return rec
}

// ScanEvent wraps adv in the enveloped form of a scan event: [null, record].
func ScanEvent(adv ble.Advertisement) native.Value {
	return native.ListOf(native.Null(), native.RecordOf(ScanRecord(adv)))
}

func uuidList(uuids []ble.UUID) native.Value {
	items := make([]native.Value, len(uuids))
	for i, u := range uuids {
		items[i] = native.String(u.String())
	}
	return native.ListOf(items...)
}

// Emitter receives native events, typically a plugin delegate.
type Emitter interface {
	DispatchEvent(name string, v native.Value)
}

// Forwarder relays advertisements matching its service filter to an Emitter as scan events.
type Forwarder struct {
	emitter Emitter
	filter  []ble.UUID
}

// NewForwarder parses the service UUID filter; an empty filter accepts everything.
func NewForwarder(emitter Emitter, serviceUUIDs []string) (*Forwarder, error) {
	f := &Forwarder{emitter: emitter}
	for _, s := range serviceUUIDs {
		u, err := ble.Parse(s)
		if err != nil {
			return nil, err
		}
		f.filter = append(f.filter, u)
	}
	return f, nil
}

// Filter reports whether adv advertises one of the filtered services.
func (f *Forwarder) Filter(adv ble.Advertisement) bool {
	if len(f.filter) == 0 {
		return true
	}
	for _, have := range adv.Services() {
		for _, want := range f.filter {
			if have.Equal(want) {
				return true
			}
		}
	}
	return false
}

// Handle forwards adv if it passes the filter.
func (f *Forwarder) Handle(adv ble.Advertisement) {
	if !f.Filter(adv) {
		return
	}
	f.emitter.DispatchEvent(event.NameScan, ScanEvent(adv))
}

// Handler and AdvFilter plug the forwarder into ble.Scan.
func (f *Forwarder) Handler() ble.AdvHandler { return f.Handle }

func (f *Forwarder) AdvFilter() ble.AdvFilter { return f.Filter }
