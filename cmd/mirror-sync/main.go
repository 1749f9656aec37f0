// Command mirror-sync phase-locks TTL light pulses to an oscillating mirror.
// It classifies timing-mark edges from GPIO, gates on sweep direction from an
// analog pickup, and triggers per-channel pulse sequences, with MQTT events,
// an HTTP status page, and a TCP command protocol for host tooling.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/mirror-sync/internal/adc"
	"github.com/sweeney/mirror-sync/internal/command"
	"github.com/sweeney/mirror-sync/internal/engine"
	"github.com/sweeney/mirror-sync/internal/gpio"
	"github.com/sweeney/mirror-sync/internal/mqtt"
	"github.com/sweeney/mirror-sync/internal/pattern"
	"github.com/sweeney/mirror-sync/internal/status"
	"github.com/sweeney/mirror-sync/internal/timing"
	"github.com/sweeney/mirror-sync/internal/web"
)

func main() {
	cfg, fromFile := loadConfig()

	broker := flag.String("broker", cfg.Server.Broker, "MQTT broker address")
	httpAddr := flag.String("http", cfg.Server.HTTPAddr, "HTTP status address (empty to disable)")
	cmdAddr := flag.String("cmd", cfg.Server.CmdAddr, "command protocol address (empty to disable)")
	chip := flag.String("chip", cfg.GPIO.Chip, "GPIO character device chip")
	pinMark := flag.Int("pin-mark", cfg.GPIO.PinMark, "BCM pin number for the timing-mark input")
	pinR := flag.Int("pin-r", cfg.GPIO.PinR, "BCM pin number for the R channel output")
	pinG := flag.Int("pin-g", cfg.GPIO.PinG, "BCM pin number for the G channel output")
	pinB := flag.Int("pin-b", cfg.GPIO.PinB, "BCM pin number for the B channel output")
	adcDevice := flag.Int("adc-device", cfg.ADC.Device, "IIO device index for the analog pickup")
	adcChannel := flag.Int("adc-channel", cfg.ADC.Channel, "IIO voltage channel index")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "telemetry heartbeat interval (0 to disable)")
	arm := flag.Bool("arm", false, "arm output at startup")

	flag.Parse()

	cfg.Server.Broker = *broker
	cfg.Server.HTTPAddr = *httpAddr
	cfg.Server.CmdAddr = *cmdAddr
	cfg.GPIO.Chip = *chip
	cfg.GPIO.PinMark = *pinMark
	cfg.GPIO.PinR = *pinR
	cfg.GPIO.PinG = *pinG
	cfg.GPIO.PinB = *pinB
	cfg.ADC.Device = *adcDevice
	cfg.ADC.Channel = *adcChannel

	if fromFile {
		log.Printf("config loaded from %s", configFileUsed())
	} else {
		log.Printf("no config file found, using defaults")
	}

	if err := run(cfg, *arm, *heartbeat); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg fileConfig, armAtBoot bool, heartbeat time.Duration) error {
	// Hardware first: fail fast if the pins are unavailable.
	source := gpio.NewRealEdgeSource(cfg.GPIO.Chip, cfg.GPIO.PinMark)
	defer source.Close()

	playback, err := gpio.NewRealPlayback(cfg.GPIO.Chip, cfg.GPIO.PinR, cfg.GPIO.PinG, cfg.GPIO.PinB)
	if err != nil {
		return fmt.Errorf("init playback: %w", err)
	}
	defer playback.Close()

	sampler := adc.NewIIOSampler(cfg.ADC.Device, cfg.ADC.Channel)

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:     cfg.Server.Broker,
		HTTPAddr:   cfg.Server.HTTPAddr,
		CmdAddr:    cfg.Server.CmdAddr,
		Chip:       cfg.GPIO.Chip,
		PinMark:    cfg.GPIO.PinMark,
		PinR:       cfg.GPIO.PinR,
		PinG:       cfg.GPIO.PinG,
		PinB:       cfg.GPIO.PinB,
		ADCDevice:  cfg.ADC.Device,
		ADCChannel: cfg.ADC.Channel,
	})

	params := engine.NewParams(engine.ParamDefaults{
		PulseWidthUs:      cfg.TTL.PixelWidthUs,
		ExtraOffsetUs:     cfg.TTL.ExtraOffsetUs,
		TTLFreqHz:         cfg.TTL.TTLFreqHz,
		RecoveryTimeoutUs: cfg.TTL.RecoveryTimeoutMs * 1000,
		TestCount:         cfg.TTL.TestCount,
	})

	engCfg := engine.DefaultConfig()
	engCfg.Classifier = timing.ClassifierConfig{
		ShortSeedUs: cfg.Timing.ShortSeedUs,
		LongSeedUs:  cfg.Timing.LongSeedUs,
		GapSeedUs:   cfg.Timing.GapSeedUs,
		EMAShift:    cfg.Timing.EMAShift,
	}
	engCfg.Sweep = timing.SweepFilterConfig{
		Shift: cfg.Timing.SweepShift,
		MinUs: cfg.Timing.SweepMinUs,
		MaxUs: cfg.Timing.SweepMaxUs,
	}
	engCfg.Direction = timing.DirectionConfig{
		ForwardSlopePositive: cfg.TTL.ForwardSlopePositive,
		SettleDelayUs:        cfg.Timing.SettleDelayUs,
	}

	eng := engine.New(engCfg, pattern.NewBuffer(), playback, sampler, params, tracker)
	if err := source.Start(eng.OnEdge); err != nil {
		return fmt.Errorf("start edge capture: %w", err)
	}

	// MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.Server.Broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// HTTP status server
	if cfg.Server.HTTPAddr != "" {
		srv := web.New(cfg.Server.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.Server.HTTPAddr)
	}

	// Command protocol server
	if cfg.Server.CmdAddr != "" {
		cmdSrv := command.NewServer(command.NewHandler(eng, tracker))
		go func() {
			if err := cmdSrv.ListenAndServe(cfg.Server.CmdAddr); err != nil {
				log.Printf("command server error: %v", err)
			}
		}()
		defer cmdSrv.Close()
		log.Printf("command server listening on %s", cfg.Server.CmdAddr)
	}

	eng.Start()
	defer eng.Stop()

	if armAtBoot {
		eng.Arm(true)
		log.Printf("armed at startup")
	}

	log.Printf("started: chip=%s mark=%d rgb=%d/%d/%d broker=%s heartbeat=%v",
		cfg.GPIO.Chip, cfg.GPIO.PinMark, cfg.GPIO.PinR, cfg.GPIO.PinG, cfg.GPIO.PinB,
		cfg.Server.Broker, heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()

	return runLoop(eng.Notices(), publisher, publisher, tracker, heartbeat, tick.C, sigCh)
}

// runLoop bridges engine notices to MQTT and handles shutdown signals. The
// ticker refreshes the tracker's view of the broker connection and drives the
// periodic heartbeat event (disabled when the interval is zero).
func runLoop(notices <-chan engine.Notice, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastBeat := time.Now()
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			name := signalName(s)
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      "SHUTDOWN",
				Reason:     name,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", name),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case n := <-notices:
			log.Printf("signal event: %s (sweep=%dus locked=%v)", n.Kind, n.SweepUs, n.Locked)
			err := publisher.Publish(mqtt.Event{
				Timestamp: n.At,
				Event:     n.Kind.String(),
				SweepUs:   n.SweepUs,
				Locked:    n.Locked,
			})
			if err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
			}

		case t := <-tick:
			tracker.SetMQTTConnected(mqttStatus.IsConnected())

			if heartbeat > 0 && t.Sub(lastBeat) >= heartbeat {
				lastBeat = t
				snap := tracker.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				log.Printf("heartbeat: uptime=%v sweep=%dus locked=%v",
					snap.Uptime().Truncate(time.Second), snap.RT.SweepUs, snap.RT.Timing.Locked)
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
