package state

// Field names a device attribute tracked by reconciliation. FieldAppeared and
// FieldDisappeared are synthetic entries for cache membership changes.
type Field string

const (
	FieldAppeared       Field = "appeared"
	FieldDisappeared    Field = "disappeared"
	FieldName           Field = "name"
	FieldPaired         Field = "paired"
	FieldReachable      Field = "reachable"
	FieldBatteryPercent Field = "battery_percent"
	FieldCharging       Field = "charging"
	FieldSignalPercent  Field = "signal_percent"
	FieldNetworkType    Field = "network_type"
	FieldMounted        Field = "mounted"
	FieldMountpoint     Field = "mountpoint"
)

// Change is one (device, field, old, new) entry. Absent optional values are
// nil. For FieldAppeared New holds the Device; for FieldDisappeared Old does.
type Change struct {
	DeviceID string
	Name     string
	Field    Field
	Old      any
	New      any
}

// Diff is the set of changes produced by one reconciliation.
type Diff struct {
	Generation uint64
	Changes    []Change
}

// Empty reports whether the reconciliation changed nothing.
func (d Diff) Empty() bool { return len(d.Changes) == 0 }

// Find returns the change for the given device and field, if any.
func (d Diff) Find(id string, field Field) (Change, bool) {
	for _, c := range d.Changes {
		if c.DeviceID == id && c.Field == field {
			return c, true
		}
	}
	return Change{}, false
}

func compareDevices(prev, next Device) []Change {
	var out []Change
	add := func(field Field, from, to any) {
		out = append(out, Change{DeviceID: next.ID, Name: next.Name, Field: field, Old: from, New: to})
	}

	if prev.Name != next.Name {
		add(FieldName, prev.Name, next.Name)
	}
	if prev.Paired != next.Paired {
		add(FieldPaired, prev.Paired, next.Paired)
	}
	if prev.Reachable != next.Reachable {
		add(FieldReachable, prev.Reachable, next.Reachable)
	}
	if !equalInt(prev.BatteryPercent, next.BatteryPercent) {
		add(FieldBatteryPercent, intValue(prev.BatteryPercent), intValue(next.BatteryPercent))
	}
	if !equalBool(prev.Charging, next.Charging) {
		add(FieldCharging, boolValue(prev.Charging), boolValue(next.Charging))
	}
	if !equalInt(prev.SignalPercent, next.SignalPercent) {
		add(FieldSignalPercent, intValue(prev.SignalPercent), intValue(next.SignalPercent))
	}
	if prev.NetworkType != next.NetworkType {
		add(FieldNetworkType, networkValue(prev.NetworkType), networkValue(next.NetworkType))
	}
	if prev.Mounted != next.Mounted {
		add(FieldMounted, prev.Mounted, next.Mounted)
	}
	if prev.Mountpoint != next.Mountpoint {
		add(FieldMountpoint, stringValue(prev.Mountpoint), stringValue(next.Mountpoint))
	}
	return out
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolValue(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

func networkValue(n NetworkType) any {
	if n == "" {
		return nil
	}
	return n
}

func stringValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}
