package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/mirror-sync/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"direction": func(rt status.Realtime) string {
		if !rt.HaveDirection {
			return "UNKNOWN"
		}
		if rt.Direction.Forward {
			return "FORWARD"
		}
		return "REVERSE"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Mirror Sync</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.idle { color: #888; }
.alert { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Mirror Sync</h1>

<h2>Signal</h2>
<table>
<tr><th>Recovery</th><td class="{{if .RT.SignalLost}}alert{{else}}ok{{end}}">{{if .RT.SignalLost}}SIGNAL_LOST{{else}}ARMED_NORMAL{{end}}</td></tr>
<tr><th>Classifier</th><td class="{{if .RT.Timing.Locked}}ok{{else}}idle{{end}}">{{if .RT.Timing.Locked}}locked{{else}}bootstrapping{{end}}</td></tr>
<tr><th>Sweep</th><td>{{.RT.SweepUs}}&micro;s</td></tr>
<tr><th>Direction</th><td>{{direction .RT}}</td></tr>
<tr><th>Intervals</th><td>short {{.RT.Timing.ShortUs}} / long {{.RT.Timing.LongUs}} / gap {{.RT.Timing.GapUs}} &micro;s</td></tr>
</table>

<h2>Output</h2>
<table>
<tr><th>Armed</th><td class="{{if .Control.Armed}}ok{{else}}idle{{end}}">{{if .Control.Armed}}yes{{else}}no{{end}}</td></tr>
<tr><th>Active dots</th><td>{{.RT.ActiveCount}} (generation {{.RT.ActiveIndex}})</td></tr>
<tr><th>Test pattern</th><td>{{if .Control.TestPattern}}on ({{.Control.TestCount}} dots){{else}}off{{end}}</td></tr>
<tr><th>Pixel width</th><td>{{.Control.PulseWidthUs}}&micro;s</td></tr>
<tr><th>Extra offset</th><td>{{.Control.ExtraOffsetUs}}&micro;s</td></tr>
<tr><th>Min spacing</th><td>{{.Control.MinSpacingUs}}&micro;s ({{.Control.TTLFreqHz}} Hz)</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Edges</th><td>{{.RT.Counters.Edges}}</td></tr>
<tr><th>Overruns</th><td>{{.RT.Counters.Overruns}}</td></tr>
<tr><th>Builds</th><td>{{.RT.Counters.Builds}}</td></tr>
<tr><th>Truncated builds</th><td>{{.RT.Counters.TruncatedBuilds}}</td></tr>
<tr><th>Dropped windows</th><td>{{.RT.Counters.DroppedWindows}}</td></tr>
<tr><th>Rejected dots</th><td>{{.RT.Counters.RejectedPoints}}</td></tr>
<tr><th>Signal losses</th><td>{{.RT.Counters.Losses}}</td></tr>
<tr><th>Swaps</th><td>{{.RT.Counters.Swaps}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Command</th><td>{{.Config.CmdAddr}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Chip}} mark={{.Config.PinMark}} rgb={{.Config.PinR}}/{{.Config.PinG}}/{{.Config.PinB}}</td></tr>
<tr><th>ADC</th><td>iio:device{{.Config.ADCDevice}} ch{{.Config.ADCChannel}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
