package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/g2ctl/internal/entries"
	"github.com/danmuck/g2ctl/internal/live"
	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/danmuck/g2ctl/internal/state"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Transport carries bulk transfers to the device. Request returns the
// response message, from the response code through its trailing CRC.
type Transport interface {
	Request(ctx context.Context, msg []byte) ([]byte, error)
	Send(ctx context.Context, msg []byte) error
}

// PerfSlotCode addresses the performance in LoadEntry.
const PerfSlotCode = 4

// Device is the model of one connected synth. All fields are owned by the
// worker goroutine.
type Device struct {
	cfg       Config
	transport Transport
	worker    *Worker
	log       zerolog.Logger

	perf        *state.Performance
	synth       *state.SynthSettings
	catalog     *entries.Catalog
	masterClock *live.Property[int]
	lastEntries *entries.Message
}

// New returns a device with an empty performance and starts its worker.
func New(t Transport, cfg Config) *Device {
	cfg = cfg.withDefaults()
	d := &Device{
		cfg:         cfg,
		transport:   t,
		worker:      NewWorker(cfg.QueueDepth, cfg.TaskTimeout),
		log:         log.With().Str("component", "device").Logger(),
		synth:       state.OfflineSynthSettings(),
		catalog:     entries.NewCatalog(),
		masterClock: live.Value("Device.MasterClock", 0),
	}
	d.perf = state.NewPerformance(d.stateConfig())
	return d
}

// stateConfig routes local edits of the model to the transport.
func (d *Device) stateConfig() state.Config {
	return state.Config{
		DumpDir: d.cfg.DumpDir,
		Catalog: d.cfg.Catalog,
		Sender:  senderFunc(d.sendCommand),
	}
}

type senderFunc func(msg []byte) error

func (f senderFunc) Send(msg []byte) error { return f(msg) }

func (d *Device) Worker() *Worker { return d.worker }

// Close stops the worker after the queued tasks ran.
func (d *Device) Close() { d.worker.Close() }

// View runs fn on the worker with the current model. fn must not retain
// the performance beyond the call.
func (d *Device) View(ctx context.Context, fn func(perf *state.Performance, synth *state.SynthSettings) error) error {
	return d.worker.Invoke(ctx, "view", func(context.Context) error {
		return fn(d.perf, d.synth)
	})
}

// Receive queues an unsolicited inbound message for dispatch.
func (d *Device) Receive(msg []byte) error {
	return d.worker.Execute("receive", func(context.Context) error {
		return d.Dispatch(msg)
	})
}

// request sends one bulk request and dispatches its response. Unknown
// responses are logged and do not fail the exchange.
func (d *Device) request(ctx context.Context, what string, msg []byte) error {
	bulk, err := protocol.EncodeBulk(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()
	d.log.Debug().Str("request", what).Hex("msg", msg).Msg("request")
	resp, err := d.transport.Request(ctx, bulk)
	if err != nil {
		return fmt.Errorf("device: %s: %w", what, err)
	}
	if err := d.Dispatch(resp); err != nil {
		if errors.Is(err, ErrUnhandled) {
			d.log.Warn().Str("request", what).Err(err).Msg("unhandled response")
			return nil
		}
		return fmt.Errorf("device: %s: %w", what, err)
	}
	return nil
}

// sendCommand sends a command that has no response.
func (d *Device) sendCommand(msg []byte) error {
	bulk, err := protocol.EncodeBulk(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.RequestTimeout)
	defer cancel()
	return d.transport.Send(ctx, bulk)
}

// Initialize resets the device link and reads the synth settings, the
// performance, all four slots and both entry catalogs.
func (d *Device) Initialize(ctx context.Context) error {
	return d.worker.invoke(ctx, "initialize", d.cfg.InitTimeout, func(ctx context.Context) error {
		if err := d.request(ctx, "init", []byte{protocol.RInit}); err != nil {
			return err
		}
		d.perf = state.NewPerformance(d.stateConfig())
		steps := []step{
			{"perf version", sys(protocol.QVersionCount, protocol.PerfID)},
			{"stop comm", func() []byte { return protocol.StartStopComm(false) }},
			{"synth settings", sys(protocol.QSynthSettings)},
			{"unknown 1", sys(protocol.QUnknown1)},
			{"perf settings", d.perfReq(protocol.QPerfSettings)},
			{"unknown 2", d.perfReq(protocol.QUnknown2)},
			{"master clock", sys(protocol.QMasterClock)},
			{"global knobs", d.perfReq(protocol.QGlobalKnobs)},
		}
		if err := d.run(ctx, steps); err != nil {
			return err
		}
		for _, s := range state.Slots {
			if err := d.readSlot(ctx, s); err != nil {
				return err
			}
		}
		if err := d.request(ctx, "assigned voices", protocol.SystemRequest(protocol.QAssignedVoices)); err != nil {
			return err
		}
		for _, t := range entries.Types {
			if err := d.catalog.Read(ctx, d, t); err != nil {
				return err
			}
		}
		d.log.Info().Int("version", d.perf.Version()).Str("name", d.perf.Name().Get()).Msg("initialized")
		return nil
	})
}

type step struct {
	what string
	msg  func() []byte
}

// run issues steps in order. Builders are evaluated lazily so version
// bytes reflect earlier responses.
func (d *Device) run(ctx context.Context, steps []step) error {
	for _, s := range steps {
		if err := d.request(ctx, s.what, s.msg()); err != nil {
			return err
		}
	}
	return nil
}

func sys(data ...byte) func() []byte {
	return func() []byte { return protocol.SystemRequest(data...) }
}

func (d *Device) perfReq(data ...byte) func() []byte {
	return func() []byte { return protocol.PerfRequest(d.perf.Version(), data...) }
}

func (d *Device) slotReq(s state.Slot, data ...byte) func() []byte {
	return func() []byte {
		return protocol.SlotRequest(s.Index(), d.perf.Patch(s).Version(), data...)
	}
}

// readSlot queries the version of a slot, then its patch and status.
func (d *Device) readSlot(ctx context.Context, s state.Slot) error {
	name := s.String()
	return d.run(ctx, []step{
		{"slot version " + name, sys(protocol.QVersionCount, byte(s.Index()))},
		{"patch " + name, d.slotReq(s, protocol.QPatch)},
		{"patch name " + name, d.slotReq(s, protocol.QPatchName)},
		{"current note " + name, d.slotReq(s, protocol.QCurrentNote)},
		{"text pad " + name, d.slotReq(s, protocol.QPatchText)},
		{"load voice " + name, d.slotReq(s, protocol.QResourcesUsed, byte(state.AreaVoice))},
		{"load fx " + name, d.slotReq(s, protocol.QResourcesUsed, byte(state.AreaFx))},
		{"unknown 6 " + name, d.slotReq(s, protocol.QUnknown6)},
		{"selected param " + name, d.slotReq(s, protocol.QSelectedParam)},
	})
}

// ListEntries requests one page of the entry catalog. It runs on the
// worker as part of a paging loop.
func (d *Device) ListEntries(ctx context.Context, t entries.Type, bank, entry int) (entries.Message, error) {
	d.lastEntries = nil
	if err := d.request(ctx, "list entries", entries.Request(t, bank, entry)); err != nil {
		return entries.Message{}, err
	}
	if d.lastEntries == nil {
		return entries.Message{}, entries.ErrNoResponse
	}
	return *d.lastEntries, nil
}

// LoadEntries pages through one entry catalog.
func (d *Device) LoadEntries(ctx context.Context, t entries.Type) error {
	return d.worker.invoke(ctx, "entries "+t.String(), d.cfg.InitTimeout, func(ctx context.Context) error {
		return d.catalog.Read(ctx, d, t)
	})
}

// Catalog returns the entry listings. Read it through View.
func (d *Device) Catalog() *entries.Catalog { return d.catalog }

// MasterClock is the last reported external master clock.
func (d *Device) MasterClock() *live.Property[int] { return d.masterClock }

// LoadEntry loads a stored entry into a slot, or into the performance
// when slotCode is PerfSlotCode, then rereads what changed.
func (d *Device) LoadEntry(ctx context.Context, slotCode, bank, entry int) error {
	return d.worker.invoke(ctx, "load entry", d.cfg.InitTimeout, func(ctx context.Context) error {
		d.log.Info().Int("slot", slotCode).Int("bank", bank).Int("entry", entry).Msg("load entry")
		if err := d.request(ctx, "load entry", protocol.LoadEntry(slotCode, bank, entry)); err != nil {
			return err
		}
		if slotCode == PerfSlotCode {
			steps := []step{
				{"perf version", sys(protocol.QVersionCount, protocol.PerfID)},
				{"perf settings", d.perfReq(protocol.QPerfSettings)},
				{"global knobs", d.perfReq(protocol.QGlobalKnobs)},
			}
			if err := d.run(ctx, steps); err != nil {
				return err
			}
			for _, s := range state.Slots {
				if err := d.readSlot(ctx, s); err != nil {
					return err
				}
			}
			return nil
		}
		s, err := state.SlotFromIndex(slotCode)
		if err != nil {
			return err
		}
		return d.readSlot(ctx, s)
	})
}

// SetParam edits one parameter value and sends it to the device if it
// changed.
func (d *Device) SetParam(ctx context.Context, s state.Slot, area state.AreaID, module, param, variation, value int) error {
	return d.worker.Invoke(ctx, "set param", func(context.Context) error {
		return d.perf.Patch(s).EditParam(area, module, param, variation, value)
	})
}

// StartComm enables or stops unsolicited LED, meter and edit messages.
func (d *Device) StartComm(ctx context.Context, start bool) error {
	return d.worker.Invoke(ctx, "start comm", func(ctx context.Context) error {
		return d.request(ctx, "start/stop comm", protocol.StartStopComm(start))
	})
}

// LoadPerformanceFile replaces the model with a performance read from disk.
func (d *Device) LoadPerformanceFile(ctx context.Context, path string) error {
	return d.worker.Invoke(ctx, "load performance file", func(context.Context) error {
		perf, err := state.ReadPerformanceFile(path, d.stateConfig())
		if err != nil {
			return err
		}
		d.perf = perf
		return nil
	})
}

// LoadPatchFile replaces the patch of one slot with a patch file.
func (d *Device) LoadPatchFile(ctx context.Context, s state.Slot, path string) error {
	return d.worker.Invoke(ctx, "load patch file", func(context.Context) error {
		p, err := state.ReadPatchFile(s, path, d.stateConfig())
		if err != nil {
			return err
		}
		d.perf.SetPatch(p)
		return nil
	})
}
