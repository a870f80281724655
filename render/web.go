package render

import (
	"bytes"
	"errors"
	"html/template"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
)

// Web serves the live plot over HTTP:
//
//	/           auto-refreshing page
//	/frame.png  latest frame
//	/metrics    Prometheus metrics, when a gatherer is given
type Web struct {
	*fwk.Base
	Title   string
	Refresh time.Duration

	snap snapshot
	tmpl *template.Template
	mux  *http.ServeMux
	srv  *http.Server
}

func NewWeb(title string, reg prometheus.Gatherer) *Web {
	w := &Web{
		Base:    fwk.NewBase("web"),
		Title:   title,
		Refresh: 200 * time.Millisecond,
		tmpl:    template.Must(template.New("live").Parse(liveTmpl)),
		mux:     http.NewServeMux(),
	}
	w.mux.HandleFunc("/", w.handlePage)
	w.mux.HandleFunc("/frame.png", w.handleFrame)
	if reg != nil {
		w.mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return w
}

func (w *Web) Blit(frame *image.RGBA) error {
	w.snap.store(frame)
	return nil
}

func (w *Web) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.mux.ServeHTTP(rw, r)
}

// ListenAndServe serves on addr in the background.
func (w *Web) ListenAndServe(addr string) error {
	w.srv = &http.Server{
		Addr:              addr,
		Handler:           w,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		w.Infof("serving live plot on [http://%s]...\n", addr)
		err := w.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.Errorf("error server: %v\n", err)
			errc <- err
		}
	}()
	select {
	case err := <-errc:
		return err
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func (w *Web) Close() error {
	if w.srv == nil {
		return nil
	}
	return w.srv.Close()
}

func (w *Web) handlePage(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(rw, r)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := w.tmpl.Execute(rw, struct {
		Title   string
		Refresh int64
	}{
		Title:   w.Title,
		Refresh: w.Refresh.Milliseconds(),
	})
	if err != nil {
		w.Errorf("error executing template: %v\n", err)
	}
}

func (w *Web) handleFrame(rw http.ResponseWriter, r *http.Request) {
	buf := new(bytes.Buffer)
	err := w.snap.with(func(img *image.RGBA, seq uint64) error {
		if img == nil {
			return errNoFrame
		}
		rw.Header().Set("X-Frame-Seq", strconv.FormatUint(seq, 10))
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(buf, img)
	})
	switch {
	case errors.Is(err, errNoFrame):
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "image/png")
	rw.Header().Set("Cache-Control", "no-store")
	rw.Write(buf.Bytes())
}

var errNoFrame = errors.New("render: no frame yet")

const liveTmpl = `<!DOCTYPE html>
<html>
<head>
<title>{{ .Title }}</title>
<style>
	body { background: #fafafa; font-family: sans-serif; }
	#frame { display: block; margin: 1em auto; border: 1px solid #ccc; }
</style>
<script type="text/javascript">
	var refresh = {{ .Refresh }};
	function update_display() {
		var next = new Image();
		next.onload = function() {
			document.getElementById("frame").src = next.src;
			setTimeout(update_display, refresh);
		};
		next.onerror = function() {
			setTimeout(update_display, 5*refresh);
		};
		next.src = "/frame.png?t=" + Date.now();
	}
	window.onload = update_display;
</script>
</head>
<body>
<h3>{{ .Title }}</h3>
<img id="frame" alt="live plot"/>
</body>
</html>
`
