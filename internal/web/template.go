package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/fridge-controller/internal/logic"
	"github.com/sweeney/fridge-controller/internal/status"
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
	"state": func(on bool) string {
		return string(logic.StateOf(on))
	},
	"onoff": func(on bool) string {
		if on {
			return "on"
		}
		return "off"
	},
	"yesno": func(v bool) string {
		if v {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Fridge Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.warn { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Fridge Controller</h1>
{{if not .Ready}}<p class="warn">Waiting for sensors</p>{{end}}

<h2>Chambers</h2>
<table>
<tr><th></th><th>Fridge</th><th>Freezer</th></tr>
<tr><th>Temperature</th><td id="fridge-temp">{{.Control.FridgeTemp}}&deg;C</td><td id="freezer-temp">{{.Control.FreezerTemp}}&deg;C</td></tr>
<tr><th>Target</th><td>{{.Control.Settings.FridgeTarget}}&deg;C &plusmn;{{.Control.Settings.FridgeHysteresis}}</td><td>{{.Control.Settings.FreezerTarget}}&deg;C &plusmn;{{.Control.Settings.FreezerHysteresis}}</td></tr>
<tr><th>Cooling</th><td class="{{onoff .Control.NeedFridgeCooling}}">{{yesno .Control.NeedFridgeCooling}}</td><td class="{{onoff .Control.NeedFreezerCooling}}">{{yesno .Control.NeedFreezerCooling}}</td></tr>
<tr><th>Sensor</th><td>{{.Control.FridgeSensor}}</td><td>{{.Control.FreezerSensor}}</td></tr>
</table>

<h2>Relays</h2>
<table>
<tr><th>Compressor</th><td id="compressor-state" class="{{onoff .Control.CompressorActive}}">{{state .Control.CompressorActive}}</td></tr>
{{if .Control.CompressorResting}}<tr><th>Compressor rest</th><td class="warn">resting</td></tr>{{end}}
<tr><th>Defrost</th><td id="defrost-state" class="{{onoff .Control.DefrostActive}}">{{state .Control.DefrostActive}}</td></tr>
<tr><th>Defrost needed</th><td>{{yesno .Control.NeedDefrost}}</td></tr>
<tr><th>Hours to defrost</th><td>{{.Control.HoursLeft}}</td></tr>
<tr><th>Defrost window</th><td>below {{.Control.Settings.DefrostOnTemp}}&deg;C until {{.Control.Settings.DefrostOffTemp}}&deg;C</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Compressor ON</th><td>{{.Counts.CompressorOn}}</td></tr>
<tr><th>Compressor OFF</th><td>{{.Counts.CompressorOff}}</td></tr>
<tr><th>Defrost ON</th><td>{{.Counts.DefrostOn}}</td></tr>
<tr><th>Defrost OFF</th><td>{{.Counts.DefrostOff}}</td></tr>
<tr><th>Suppressed</th><td>{{.Suppressed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Sensors</th><td>{{.Config.SensorMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">Metrics</a></p>
<script>
(function() {
  var ids = {
    "fridge-temp": function(s) { return s.fridge.temp + "°C"; },
    "freezer-temp": function(s) { return s.freezer.temp + "°C"; },
    "compressor-state": function(s) { return s.compressor.state; },
    "defrost-state": function(s) { return s.defrost.state; }
  };

  function refresh() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
      for (var id in ids) {
        var el = document.getElementById(id);
        var v = ids[id](j.status);
        el.textContent = v;
        if (v === "ON" || v === "OFF") {
          el.className = v === "ON" ? "on" : "off";
        }
      }
    }).catch(function() {});
  }

  setInterval(refresh, 5000);
})();
</script>
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
