package ble

import (
	"context"
	"log/slog"

	"tinygo.org/x/bluetooth"

	"github.com/wcd-project/wifi-commissiond/pkg/connectengine"
	"github.com/wcd-project/wifi-commissiond/pkg/notify"
	"github.com/wcd-project/wifi-commissiond/pkg/scanengine"
	"github.com/wcd-project/wifi-commissiond/pkg/transport"
)

var _ transport.Transport = (*Peripheral)(nil)

// Peripheral binds an Adapter to a real BLE GATT peripheral stack. This is
// the thin, hardware-facing collaborator analogous to the concrete
// WifiBackend driver: the translation logic it calls into (Adapter) is
// the tested core; this file's job is wiring characteristic callbacks to
// that logic and is not itself unit-tested here.
type Peripheral struct {
	adapter   *Adapter
	ble       *bluetooth.Adapter
	logger    *slog.Logger
	localName string
	adv       *bluetooth.Advertisement

	scanStateChar    bluetooth.Characteristic
	connectStateChar bluetooth.Characteristic

	notifySubID notify.SubscriptionID
	notifyDone  chan struct{}
}

// NewPeripheral creates a Peripheral that will serve localName over BLE
// once Start is called.
func NewPeripheral(adapter *Adapter, localName string, logger *slog.Logger) *Peripheral {
	if logger == nil {
		logger = slog.Default()
	}
	return &Peripheral{
		adapter:   adapter,
		ble:       bluetooth.DefaultAdapter,
		logger:    logger,
		localName: localName,
	}
}

// Start enables the BLE adapter, registers the three fixed GATT services
// (spec §6), and begins advertising. It returns once advertising has
// started; it does not block for the peripheral's lifetime.
func (p *Peripheral) Start(ctx context.Context) error {
	if err := p.ble.Enable(); err != nil {
		return err
	}
	p.ble.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if !connected {
			p.adapter.OnDisconnect(device.String())
		}
	})

	if err := p.ble.AddService(&bluetooth.Service{
		UUID: mustParseUUID(AuthServiceUUID),
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:  mustParseUUID(AuthKeyCharUUID),
				Flags: bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if err := p.adapter.HandleAuthWrite(value); err != nil {
						p.logger.Warn("ble auth write rejected", "error", err)
					}
				},
			},
		},
	}); err != nil {
		return err
	}

	if err := p.ble.AddService(&bluetooth.Service{
		UUID: mustParseUUID(ScanServiceUUID),
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:  mustParseUUID(ScanControlCharUUID),
				Flags: bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if err := p.adapter.HandleScanControlWrite(ctx, value); err != nil {
						p.logger.Warn("ble scan control write rejected", "error", err)
					}
				},
			},
			{
				Handle: &p.scanStateChar,
				UUID:   mustParseUUID(ScanStateCharUUID),
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
				ReadEvent: func(client bluetooth.Connection, offset int) ([]byte, error) {
					return p.adapter.HandleScanStateRead(), nil
				},
			},
			{
				UUID:  mustParseUUID(ScanResultsCharUUID),
				Flags: bluetooth.CharacteristicReadPermission,
				ReadEvent: func(client bluetooth.Connection, offset int) ([]byte, error) {
					return p.adapter.HandleScanResultsRead(connectionID(client))
				},
			},
		},
	}); err != nil {
		return err
	}

	if err := p.ble.AddService(&bluetooth.Service{
		UUID: mustParseUUID(ConnectServiceUUID),
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:  mustParseUUID(ConnectSSIDCharUUID),
				Flags: bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if err := p.adapter.HandleConnectSSIDWrite(connectionID(client), value); err != nil {
						p.logger.Warn("ble connect ssid write rejected", "error", err)
					}
				},
			},
			{
				UUID:  mustParseUUID(ConnectPSKCharUUID),
				Flags: bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if err := p.adapter.HandleConnectPSKWrite(connectionID(client), value); err != nil {
						p.logger.Warn("ble connect psk write rejected", "error", err)
					}
				},
			},
			{
				UUID:  mustParseUUID(ConnectControlCharUUID),
				Flags: bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if err := p.adapter.HandleConnectControlWrite(ctx, connectionID(client), value); err != nil {
						p.logger.Warn("ble connect control write rejected", "error", err)
					}
				},
			},
			{
				Handle: &p.connectStateChar,
				UUID:   mustParseUUID(ConnectStateCharUUID),
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
				ReadEvent: func(client bluetooth.Connection, offset int) ([]byte, error) {
					return p.adapter.HandleConnectStateRead(), nil
				},
			},
		},
	}); err != nil {
		return err
	}

	adv := p.ble.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{LocalName: p.localName}); err != nil {
		return err
	}
	if err := adv.Start(); err != nil {
		return err
	}
	p.adv = adv

	subID, events := p.adapter.svc.Hub().Subscribe(notify.DefaultBufferSize)
	p.notifySubID = subID
	p.notifyDone = make(chan struct{})
	go p.forwardNotifications(events)

	return nil
}

// forwardNotifications pushes ScanState/ConnectState characteristic
// notifications to any subscribed central whenever the hub reports a
// transition, satisfying the R+N contract declared on both characteristics
// (spec §6, §4.7).
func (p *Peripheral) forwardNotifications(events <-chan notify.Event) {
	defer close(p.notifyDone)
	for evt := range events {
		switch evt.Payload.(type) {
		case scanengine.ScanStateChangedPayload:
			if _, err := p.scanStateChar.Write(p.adapter.HandleScanStateRead()); err != nil {
				p.logger.Debug("ble scan state notify failed", "error", err)
			}
		case connectengine.ConnectionStateChangedPayload:
			if _, err := p.connectStateChar.Write(p.adapter.HandleConnectStateRead()); err != nil {
				p.logger.Debug("ble connect state notify failed", "error", err)
			}
		}
	}
}

// Stop stops advertising and the notification-forwarding goroutine. It does
// not close any link already connected; spec §5's drain requirement is the
// commissioning facade's job, not the peripheral binding's.
func (p *Peripheral) Stop(ctx context.Context) error {
	if p.notifyDone != nil {
		p.adapter.svc.Hub().Unsubscribe(p.notifySubID)
		<-p.notifyDone
	}
	if p.adv == nil {
		return nil
	}
	return p.adv.Stop()
}

// connectionID derives the per-link session key the Adapter uses to scope
// accumulation buffers and pagination cursors.
func connectionID(c bluetooth.Connection) string {
	return c.String()
}

func mustParseUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic("ble: invalid frozen UUID constant: " + s)
	}
	return u
}
