package web

import (
	"html/template"
	"net/http"

	"github.com/atmx/betting-dashboard/internal/chart"
	"github.com/atmx/betting-dashboard/internal/codec"
	"github.com/atmx/betting-dashboard/internal/engine"
	"github.com/atmx/betting-dashboard/internal/model"
)

type pageData struct {
	AutoRollStatus template.HTML
	MultiplyStatus template.HTML
	BaseBet        string
	Odds           string
	Loops          engine.Snapshot
	Charts         chart.Charts
	WatchNode      string
	SessionCanvas  string
	TotalCanvas    string
}

var page = template.Must(template.New("dashboard").Parse(pageHTML))

// Index handles GET /. A decodable state cookie is imported when the
// service still holds the default record.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	s.importCookie(r)

	st := s.engine.Store().Get()
	loops := s.engine.Status()
	params := loops.MultiplyParams

	data := pageData{
		// Status lines are produced by the engine, never by the client.
		AutoRollStatus: template.HTML(s.board.Last(engine.AutoRollTarget)),
		MultiplyStatus: template.HTML(s.board.Last(engine.MultiplyTarget)),
		BaseBet:        params.BaseBet.StringFixed(model.MoneyScale),
		Odds:           params.Odds.String(),
		Loops:          loops,
		Charts:         s.charts.Last(),
		WatchNode:      s.watchNode,
		SessionCanvas:  chart.SessionCanvas,
		TotalCanvas:    chart.TotalCanvas,
	}

	http.SetCookie(w, codec.Cookie(s.cookieName, st, s.now()))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		s.logger.Error("render page failed", "err", err)
	}
}

const pageHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Betting Dashboard</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 980px; margin: 24px auto; padding: 16px 20px; }
    .panel { background:#111827; border:1px solid #1f2937; border-radius:12px; padding:12px 16px; margin-bottom:12px; }
    .status { min-height:1.4em; font-family: ui-monospace, Menlo, monospace; margin:8px 0; }
    .success { color:#22c55e; font-weight:600; }
    .failure { color:#ef4444; font-weight:600; }
    button { background:#2563eb; color:#fff; border:0; border-radius:6px; padding:6px 12px; margin-right:6px; cursor:pointer; }
    input { background:#0b1220; color:#e2e8f0; border:1px solid #334155; border-radius:6px; padding:5px 8px; width:9em; }
    canvas { background:#0b1220; border-radius:8px; margin-top:8px; }
  </style>
</head>
<body>
<div class="wrap">
  <div class="panel">
    <h3>Auto Roll</h3>
    <div id="script_output" class="status">{{.AutoRollStatus}}</div>
    <button id="autoroll_start">Start Auto Roll</button>
    <button id="autoroll_stop">Stop Auto Roll</button>
    <button id="reset_stats">Reset Stats</button>
  </div>

  <div class="panel">
    <h3>Multiply</h3>
    <div id="multiply_status" class="status">{{.MultiplyStatus}}</div>
    <label>Base bet <input id="base_bet" type="text" value="{{.BaseBet}}" /></label>
    <label>Odds <input id="odds" type="text" value="{{.Odds}}" /></label>
    <button id="multiply_start">Start Multiply</button>
    <button id="multiply_stop">Stop Multiply</button>
  </div>

  <div class="panel">
    <canvas id="{{.SessionCanvas}}" height="120"></canvas>
    <canvas id="{{.TotalCanvas}}" height="120"></canvas>
  </div>
</div>

<script>
const initialCharts = {{.Charts}};
const watchNode = {{.WatchNode}};
const charts = {};

function draw(ds) {
  const el = document.getElementById(ds.canvas);
  if (!el || typeof Chart === "undefined") return;
  if (charts[ds.canvas]) charts[ds.canvas].destroy();
  charts[ds.canvas] = new Chart(el, {
    type: "line",
    data: {
      labels: ds.labels,
      datasets: [{ label: ds.label, data: ds.values, borderColor: ds.color, fill: false }],
    },
  });
}

function drawAll(c) {
  draw(c.session);
  draw(c.total);
}

function setStatus(target, html) {
  const el = document.getElementById(target);
  if (el) el.innerHTML = html;
}

async function post(path, body) {
  const opts = { method: "POST", credentials: "same-origin" };
  if (body) {
    opts.headers = { "Content-Type": "application/json" };
    opts.body = JSON.stringify(body);
  }
  const res = await fetch("/api/v1" + path, opts);
  return res.json();
}

document.getElementById("autoroll_start").onclick = () => post("/autoroll/start");
document.getElementById("autoroll_stop").onclick = () => post("/autoroll/stop");
document.getElementById("reset_stats").onclick = () => post("/reset");
document.getElementById("multiply_start").onclick = () => post("/multiply/start", {
  base_bet: document.getElementById("base_bet").value,
  odds: document.getElementById("odds").value,
});
document.getElementById("multiply_stop").onclick = () => post("/multiply/stop");

function connect() {
  const proto = location.protocol === "https:" ? "wss:" : "ws:";
  const ws = new WebSocket(proto + "//" + location.host + "/api/v1/ws");
  ws.onmessage = (ev) => {
    const msg = JSON.parse(ev.data);
    if (msg.type === "status") setStatus(msg.target, msg.html || "");
    if (msg.type === "chart") drawAll(msg.data);
  };
  ws.onclose = () => setTimeout(connect, 2000);
}

function observe() {
  if (!watchNode) return;
  const node = document.getElementById(watchNode);
  if (!node) return;
  new MutationObserver((mutations) => {
    let added = 0;
    for (const m of mutations) added += m.addedNodes.length;
    if (added > 0) {
      fetch("/api/v1/observe/" + encodeURIComponent(watchNode) + "?added=" + added, { method: "POST" });
    }
  }).observe(node, { childList: true, subtree: true });
}

drawAll(initialCharts);
connect();
observe();
</script>
</body>
</html>`
