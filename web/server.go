package web

import (
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/host"
	"github.com/mogaika/retargeter/status"
	"github.com/mogaika/retargeter/studio"
)

type Server struct {
	Studio *studio.Studio
	Hub    *status.Hub
	Host   host.Host
}

// Router serves the json api. Static files are served from webPath/data when webPath is set.
func (s *Server) Router(webPath string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/info", s.HandlerInfo)
	r.HandleFunc("/json/files", s.HandlerFiles)
	r.HandleFunc("/json/mapping", s.HandlerMapping)
	r.HandleFunc("/json/mapping/suggest/{bone}", s.HandlerSuggest)
	r.HandleFunc("/json/presets", s.HandlerPresets)
	r.HandleFunc("/json/options", s.HandlerOptions).Methods("GET")
	r.HandleFunc("/json/options", s.HandlerSetOptions).Methods("POST")
	r.HandleFunc("/json/clips", s.HandlerClips)
	r.HandleFunc("/json/pose", s.HandlerPose)
	r.HandleFunc("/json/diagnostics", s.HandlerDiagnostics)

	r.HandleFunc("/action/load/{kind:target|source}", s.HandlerActionLoad)
	r.HandleFunc("/action/mapping/{action}", s.HandlerActionMapping)
	r.HandleFunc("/action/preset/{action}", s.HandlerActionPreset)
	r.HandleFunc("/action/retarget", s.HandlerActionRetarget)
	r.HandleFunc("/action/clip/{index:[0-9]+}/{action}", s.HandlerActionClip)
	r.HandleFunc("/action/playback/{action}", s.HandlerActionPlayback)
	r.HandleFunc("/action/project/save", s.HandlerActionProjectSave)

	r.HandleFunc("/dump/export.glb", s.HandlerDumpExport)
	r.HandleFunc("/dump/project", s.HandlerDumpProject)
	r.HandleFunc("/dump/frames/{index:[0-9]+}", s.HandlerDumpFrames)
	r.HandleFunc("/dump/mapping", s.HandlerDumpMapping)

	r.HandleFunc("/upload/project", s.HandlerUploadProject).Methods("POST")
	r.HandleFunc("/upload/{kind:target|source}", s.HandlerUploadModel).Methods("POST")

	if s.Hub != nil {
		r.Handle("/ws/status", s.Hub)
	}
	if webPath != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))
	}
	return r
}

func StartServer(addr string, s *Server, webPath string) error {
	h := handlers.RecoveryHandler(handlers.RecoveryLogger(log.StandardLogger()), handlers.PrintRecoveryStack(true))(s.Router(webPath))
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
