// Package ui provides the browser event viewer and settings page.
package ui

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"os/exec"
	"runtime"

	"github.com/alexeynau/rdev/internal/config"
)

// Server serves the viewer page and the settings endpoint. It is mounted on
// the event feed so the page can reach /ws on the same origin.
type Server struct {
	configMgr *config.Manager
	logger    *slog.Logger
	version   string
	mux       *http.ServeMux
}

// NewServer creates a new UI server
func NewServer(cfgMgr *config.Manager, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		configMgr: cfgMgr,
		logger:    logger.With("component", "ui"),
		version:   version,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, struct{ Version string }{s.version}); err != nil {
		s.logger.Warn("render index", "error", err)
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(s.configMgr.Get())
	case http.MethodPost:
		// A JSON body cannot be sent cross-site without a preflight.
		if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt != "application/json" {
			http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
		// Start from the current settings so partial bodies only change
		// what they name.
		cfg := s.configMgr.Get()
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.configMgr.Set(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.configMgr.Save(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.logger.Info("configuration updated", "remote", r.RemoteAddr)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

var tmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>rdev</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
            color: #e2e8f0;
            min-height: 100vh;
            padding: 2rem;
        }
        .container { max-width: 900px; margin: 0 auto; }
        h1 {
            font-size: 2rem;
            font-weight: 700;
            margin-bottom: 2rem;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
        }
        .card {
            background: rgba(255,255,255,0.05);
            border: 1px solid rgba(255,255,255,0.1);
            border-radius: 16px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
        }
        .card h2 { font-size: 1.25rem; margin-bottom: 1rem; color: #a5b4fc; }
        label { display: block; margin: 0.4rem 0; }
        button {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            border: none; color: white; padding: 0.5rem 1rem;
            border-radius: 8px; cursor: pointer; margin-top: 0.5rem;
        }
        #status { color: #94a3b8; margin-bottom: 1rem; }
        #events { font-family: ui-monospace, monospace; font-size: 0.85rem; max-height: 50vh; overflow-y: auto; }
        #events div { padding: 2px 0; border-bottom: 1px solid rgba(255,255,255,0.05); }
    </style>
</head>
<body>
<div class="container">
    <h1>rdev {{.Version}}</h1>
    <div class="card">
        <h2>Settings</h2>
        <label><input type="checkbox" id="keyboard_only"> Keyboard only</label>
        <label><input type="checkbox" id="ignore_injected"> Ignore injected input</label>
        <button onclick="save()">Save</button>
    </div>
    <div class="card">
        <h2>Live events</h2>
        <div id="status">Connecting...</div>
        <div id="events"></div>
    </div>
</div>
<script>
const token = new URLSearchParams(location.search).get('token') || '';
const q = token ? '?token=' + encodeURIComponent(token) : '';
let cfg = null;

async function load() {
    const r = await fetch('/api/config' + q);
    cfg = await r.json();
    document.getElementById('keyboard_only').checked = cfg.listener.keyboard_only;
    document.getElementById('ignore_injected').checked = cfg.listener.ignore_injected;
}

async function save() {
    cfg.listener.keyboard_only = document.getElementById('keyboard_only').checked;
    cfg.listener.ignore_injected = document.getElementById('ignore_injected').checked;
    const r = await fetch('/api/config' + q, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(cfg)});
    if (!r.ok) alert(await r.text());
}

function describe(ev) {
    const t = ev.type;
    switch (t.kind) {
    case 'key_press': case 'key_release': return t.kind + ' ' + t.key + ' code=' + ev.platform_code;
    case 'button_press': case 'button_release': return t.kind + ' button=' + t.button + ' x=' + (t.x||0) + ' y=' + (t.y||0);
    case 'mouse_move': return t.kind + ' x=' + (t.x||0) + ' y=' + (t.y||0);
    case 'wheel': return t.kind + ' dx=' + (t.dx||0) + ' dy=' + (t.dy||0);
    }
    return t.kind;
}

function connect() {
    const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws' + q);
    const list = document.getElementById('events');
    const status = document.getElementById('status');
    ws.onmessage = (m) => {
        const msg = JSON.parse(m.data);
        if (msg.type === 'hello' || msg.type === 'session') {
            status.textContent = 'Session ' + (msg.payload.session || '-');
            return;
        }
        if (msg.type !== 'event') return;
        const row = document.createElement('div');
        row.textContent = '#' + msg.payload.seq + ' ' + describe(msg.payload.event);
        list.prepend(row);
        while (list.childNodes.length > 200) list.removeChild(list.lastChild);
    };
    ws.onclose = () => { status.textContent = 'Disconnected, retrying...'; setTimeout(connect, 2000); };
}

load();
connect();
</script>
</body>
</html>
`))
