// internal/node/builder.go
package node

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/clock"
	"github.com/tamzrod/sensor-node/internal/command"
	"github.com/tamzrod/sensor-node/internal/config"
	"github.com/tamzrod/sensor-node/internal/connectivity"
	"github.com/tamzrod/sensor-node/internal/link"
	"github.com/tamzrod/sensor-node/internal/ota"
	"github.com/tamzrod/sensor-node/internal/power"
	"github.com/tamzrod/sensor-node/internal/scheduler"
	"github.com/tamzrod/sensor-node/internal/sensor"
	"github.com/tamzrod/sensor-node/internal/sensor/modbusio"
	"github.com/tamzrod/sensor-node/internal/session"
	"github.com/tamzrod/sensor-node/internal/transport"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
func sec(v int) time.Duration { return time.Duration(v) * time.Second }

// Build wires a node from a validated, normalized config.
// The returned closer releases the listener and the sensor I/O connection.
func Build(c *config.Config, lf logging.LoggerFactory) (*Node, func() error, error) {
	if c == nil {
		return nil, nil, errors.New("node: config required")
	}
	clk := clock.NewSystem()

	// ---- radio ----
	lk, err := link.New(link.Config{
		Interface:        c.Network.Interface,
		HubAddress:       c.Hub.Address,
		DiscoveryService: c.Hub.DiscoveryService,
		DiscoveryDomain:  c.Hub.DiscoveryDomain,
		AttemptTimeout:   ms(c.Hub.ConnectTimeoutMs),
		LoggerFactory:    lf,
	})
	if err != nil {
		return nil, nil, err
	}
	if power.WokeRFDisabled() {
		lk.Off()
	}

	// ---- power + session ----
	pw, err := power.New(power.Config{
		OnBattery:     c.Power.OnBattery,
		FlushTimeout:  ms(c.Hub.ConnectTimeoutMs) * 2,
		LoggerFactory: lf,
	}, clk, power.Host{}, lk)
	if err != nil {
		return nil, nil, err
	}

	persist := c.Network.PersistSession != nil && *c.Network.PersistSession
	var store session.Store
	if persist {
		fs, err := session.NewFileStore(c.Network.SessionFile)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	}

	conn, err := connectivity.New(connectivity.Config{
		PersistSession: persist,
		OnBattery:      c.Power.OnBattery,
		RetryDelay:     ms(c.Network.RetryDelayMs),
		FallbackAfter:  ms(c.Network.FallbackAfterMs),
		GiveUpAfter:    ms(c.Network.GiveUpAfterMs),
		GiveUpSleep:    ms(c.Network.GiveUpSleepMs),
		LoggerFactory:  lf,
	}, clk, lk, store, pw)
	if err != nil {
		return nil, nil, err
	}

	// ---- transport ----
	client, err := transport.NewClient(transport.Config{
		Timeout:       ms(c.Hub.ConnectTimeoutMs),
		LoggerFactory: lf,
	}, lk)
	if err != nil {
		return nil, nil, err
	}

	router := command.NewRouter(lf)
	ln, err := transport.Listen(transport.ListenerConfig{
		Address:       c.Listen.Address,
		ReadTimeout:   ms(c.Listen.ReadTimeoutMs),
		LoggerFactory: lf,
	}, router)
	if err != nil {
		return nil, nil, err
	}

	closers := []func() error{ln.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	name := c.Node.Name
	if name == "" {
		name = c.Node.NamePrefix + "-" + strings.ToUpper(lk.DeviceID())
	}

	n, err := New(Options{
		Name:            name,
		LoopPeriod:      ms(c.Node.LoopMs),
		RSSIStart:       5 * time.Second,
		RSSIStep:        time.Second,
		RSSIMax:         ms(c.Hub.RSSIIntervalMs),
		SleepAfterCycle: ms(c.Power.SleepAfterCycleMs),
		LoggerFactory:   lf,
	}, Deps{
		Clock:    clk,
		Conn:     conn,
		Out:      client,
		In:       ln,
		Power:    pw,
		Signal:   lk,
		DeviceID: lk.DeviceID,
	})
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	pw.SetFlusher(n)

	// ---- update check ----
	if c.OTA.URL != "" {
		timeout := ms(c.OTA.TimeoutMs)
		checker, err := ota.New(ota.Config{
			BaseURL:       c.OTA.URL,
			Version:       c.Node.FirmwareVersion,
			Timeout:       timeout,
			LoggerFactory: lf,
		}, &ota.FileUpdater{Dir: c.OTA.StagingDir, Client: &http.Client{Timeout: 10 * timeout}}, n)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		n.d.OTA = checker
	}

	// ---- sensors ----
	if len(c.Sensors) == 0 {
		return n, closeAll, nil
	}

	mio, err := modbusio.New(modbusio.Config{
		Endpoint: c.IO.Endpoint,
		RTU:      c.IO.RTU,
		BaudRate: c.IO.BaudRate,
		DataBits: c.IO.DataBits,
		Parity:   c.IO.Parity,
		StopBits: c.IO.StopBits,
		Timeout:  ms(c.IO.TimeoutMs),
	})
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	closers = append(closers, mio.Close)

	for _, sc := range c.Sensors {
		w, err := sensor.NewWater(sensor.WaterConfig{
			Name:          sc.Name,
			Limit:         sc.Limit,
			InvertLogic:   sc.InvertLogic,
			LoggerFactory: lf,
		}, mio.Coil(sc.UnitID, sc.PowerCoil), mio.InputRegister(sc.UnitID, sc.InputAddress), n)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("sensor %q: %w", sc.Name, err)
		}

		s, err := scheduler.New(scheduler.Config{
			Name:          sc.Name,
			Intervals:     sensor.WaterIntervals(sec(sc.IntervalS), sec(sc.PowerOnS), sec(sc.OffsetS)),
			LoggerFactory: lf,
		}, clk, w)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("sensor %q: %w", sc.Name, err)
		}

		n.Attach(s)
		if err := router.Register(sc.Name, s); err != nil {
			_ = closeAll()
			return nil, nil, err
		}
	}

	return n, closeAll, nil
}
