package bluetooth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService        = "org.bluez"
	device1Interface    = "org.bluez.Device1"
	transportInterface  = "org.bluez.MediaTransport1"
	propertiesInterface = "org.freedesktop.DBus.Properties"
	objectManagerPath   = "/"
	objectManagerIface  = "org.freedesktop.DBus.ObjectManager"

	pollInterval = 500 * time.Millisecond
)

// Client talks to BlueZ over the system bus for a single configured
// device. It is safe for concurrent use; every call opens and closes its
// own connection, matching the request/response (not long-lived watcher)
// shape this collaborator needs.
type Client struct {
	adapterPath string
	deviceAddr  string
}

// New builds a Client for the device at deviceAddr (e.g. "AA:BB:CC:DD:EE:FF")
// reachable through the adapter at adapterPath (e.g. "/org/bluez/hci0").
func New(adapterPath, deviceAddr string) *Client {
	return &Client{adapterPath: adapterPath, deviceAddr: deviceAddr}
}

func (c *Client) devicePath() dbus.ObjectPath {
	suffix := strings.ReplaceAll(strings.ToUpper(c.deviceAddr), ":", "_")
	return dbus.ObjectPath(fmt.Sprintf("%s/dev_%s", c.adapterPath, suffix))
}

// Status queries {connected, sink_ready, device_name} for the configured
// device (spec 4.8 step 2).
func (c *Client) Status(ctx context.Context) (Status, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return Status{}, fmt.Errorf("bluetooth: connect system bus: %w", err)
	}
	defer conn.Close()

	return c.readStatus(ctx, conn)
}

func (c *Client) readStatus(ctx context.Context, conn *dbus.Conn) (Status, error) {
	dev := conn.Object(bluezService, c.devicePath())

	connected, err := getBoolProperty(ctx, dev, device1Interface, "Connected")
	if err != nil {
		// Device object not present on the bus at all: treat as
		// disconnected rather than erroring the caller.
		return Status{}, nil
	}

	name, _ := getStringProperty(ctx, dev, device1Interface, "Alias")

	sinkReady, err := c.sinkReady(ctx, conn)
	if err != nil {
		sinkReady = false
	}

	return Status{Connected: connected, SinkReady: sinkReady, DeviceName: name}, nil
}

// sinkReady scans the object tree under the device path for a
// MediaTransport1 object whose State is "active".
func (c *Client) sinkReady(ctx context.Context, conn *dbus.Conn) (bool, error) {
	root := conn.Object(bluezService, objectManagerPath)
	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := root.CallWithContext(ctx, objectManagerIface+".GetManagedObjects", 0).Store(&managed); err != nil {
		return false, fmt.Errorf("bluetooth: get managed objects: %w", err)
	}

	prefix := string(c.devicePath())
	for path, ifaces := range managed {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		props, ok := ifaces[transportInterface]
		if !ok {
			continue
		}
		state, ok := props["State"].Value().(string)
		if ok && state == "active" {
			return true, nil
		}
	}
	return false, nil
}

// Connect drives the slow path (spec 4.8 step 4): calls Device1.Connect and
// polls until the sink reports ready or ctx's deadline is hit.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("bluetooth: connect system bus: %w", err)
	}
	defer conn.Close()

	dev := conn.Object(bluezService, c.devicePath())
	call := dev.CallWithContext(ctx, device1Interface+".Connect", 0)
	if call.Err != nil {
		return fmt.Errorf("bluetooth: device connect: %w", call.Err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bluetooth: connect timed out waiting for sink: %w", ctx.Err())
		case <-ticker.C:
			status, err := c.readStatus(ctx, conn)
			if err != nil {
				continue
			}
			if status.Connected && status.SinkReady {
				return nil
			}
		}
	}
}

func getBoolProperty(ctx context.Context, obj dbus.BusObject, iface, name string) (bool, error) {
	var variant dbus.Variant
	if err := obj.CallWithContext(ctx, propertiesInterface+".Get", 0, iface, name).Store(&variant); err != nil {
		return false, err
	}
	v, ok := variant.Value().(bool)
	if !ok {
		return false, fmt.Errorf("bluetooth: property %s.%s is not a bool", iface, name)
	}
	return v, nil
}

func getStringProperty(ctx context.Context, obj dbus.BusObject, iface, name string) (string, error) {
	var variant dbus.Variant
	if err := obj.CallWithContext(ctx, propertiesInterface+".Get", 0, iface, name).Store(&variant); err != nil {
		return "", err
	}
	v, ok := variant.Value().(string)
	if !ok {
		return "", fmt.Errorf("bluetooth: property %s.%s is not a string", iface, name)
	}
	return v, nil
}
