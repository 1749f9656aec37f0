package status

import (
	"sync"
	"testing"
	"time"

	"github.com/sweeney/mirror-sync/internal/timing"
)

func TestTrackerZeroValue(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{Broker: "tcp://localhost:1883"})

	snap := tr.Snapshot()
	if snap.StartTime != start {
		t.Errorf("start time = %v", snap.StartTime)
	}
	if snap.Config.Broker != "tcp://localhost:1883" {
		t.Errorf("broker = %q", snap.Config.Broker)
	}
	if snap.RT.Timing.Locked || snap.RT.SignalLost || snap.Control.Armed {
		t.Error("fresh tracker reports non-zero state")
	}
	if snap.Now.IsZero() {
		t.Error("Now not stamped")
	}
}

func TestTrackerSlicesIndependent(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.UpdateRealtime(Realtime{SweepUs: 130, Timing: timing.ClusterSnapshot{Locked: true}})
	tr.SetControl(Control{Armed: true, TTLFreqHz: 1000000})
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	if snap.RT.SweepUs != 130 || !snap.RT.Timing.Locked {
		t.Errorf("realtime slice = %+v", snap.RT)
	}
	if !snap.Control.Armed || snap.Control.TTLFreqHz != 1000000 {
		t.Errorf("control slice = %+v", snap.Control)
	}
	if !snap.MQTTConnected {
		t.Error("mqtt flag lost")
	}

	// Replacing one slice leaves the others alone.
	tr.UpdateRealtime(Realtime{SweepUs: 131})
	snap = tr.Snapshot()
	if !snap.Control.Armed {
		t.Error("realtime update clobbered control")
	}
	if snap.RT.Timing.Locked {
		t.Error("realtime update did not replace whole slice")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Now().Add(-90 * time.Second)
	tr := NewTracker(start, Config{})

	up := tr.Snapshot().Uptime()
	if up < 89*time.Second || up > 92*time.Second {
		t.Errorf("uptime = %v, want about 90s", up)
	}
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				tr.UpdateRealtime(Realtime{SweepUs: int64(j)})
				tr.SetControl(Control{TestCount: int64(j)})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = tr.Snapshot()
			}
		}()
	}
	wg.Wait()
}
