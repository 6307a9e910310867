package web

import (
	"bytes"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/webutils"
)

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, diag.Errorf(diag.InvalidInput, "param %q is not a number: %q", key, v)
	}
	return f, nil
}

func queryString(r *http.Request, key string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return "", diag.Errorf(diag.InvalidInput, "param %q is required", key)
	}
	return v, nil
}

func writeResult(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		webutils.WriteError(w, err)
	} else {
		webutils.WriteJson(w, v)
	}
}

func (s *Server) HandlerInfo(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.Studio.Info())
}

func (s *Server) HandlerFiles(w http.ResponseWriter, r *http.Request) {
	if s.Host == nil {
		webutils.WriteJson(w, []string{})
		return
	}
	files, err := s.Host.OpenFileDialog([]string{".glb", ".gltf"})
	writeResult(w, files, err)
}

func (s *Server) HandlerMapping(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.Studio.Mapping())
}

func (s *Server) HandlerSuggest(w http.ResponseWriter, r *http.Request) {
	n, err := queryFloat(r, "n", 5)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	res, err := s.Studio.Suggest(mux.Vars(r)["bone"], int(n))
	writeResult(w, res, err)
}

func (s *Server) HandlerPresets(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.Studio.Presets())
}

func (s *Server) HandlerOptions(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.Studio.Options())
}

func (s *Server) HandlerSetOptions(w http.ResponseWriter, r *http.Request) {
	opts := s.Studio.Options()
	if err := webutils.ReadJson(r, &opts); err != nil {
		webutils.WriteError(w, err)
		return
	}
	s.Studio.SetOptions(opts)
	webutils.WriteJson(w, opts)
}

func (s *Server) HandlerClips(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.Studio.Clips())
}

func (s *Server) HandlerPose(w http.ResponseWriter, r *http.Request) {
	pose, err := s.Studio.Pose()
	writeResult(w, pose, err)
}

func (s *Server) HandlerDiagnostics(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.Studio.Diagnostics())
}

func (s *Server) HandlerActionLoad(w http.ResponseWriter, r *http.Request) {
	file, err := queryString(r, "file")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if mux.Vars(r)["kind"] == "source" {
		sum, err := s.Studio.LoadSource(file)
		writeResult(w, sum, err)
	} else {
		sum, err := s.Studio.LoadTarget(file)
		writeResult(w, sum, err)
	}
}

func (s *Server) HandlerActionMapping(w http.ResponseWriter, r *http.Request) {
	var ev bonemap.Event
	var err error
	q := r.URL.Query()
	switch action := mux.Vars(r)["action"]; action {
	case "auto":
		ev, err = s.Studio.AutoMap()
	case "add":
		ev, err = s.Studio.MapBone(q.Get("source"), q.Get("target"))
	case "remove":
		ev, err = s.Studio.UnmapBone(q.Get("source"))
	case "clear":
		ev, err = s.Studio.ClearMapping()
	default:
		err = diag.Errorf(diag.InvalidInput, "unknown mapping action %q", action)
	}
	writeResult(w, ev, err)
}

func (s *Server) HandlerActionPreset(w http.ResponseWriter, r *http.Request) {
	name, err := queryString(r, "name")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	switch action := mux.Vars(r)["action"]; action {
	case "save":
		err := s.Studio.SavePreset(name)
		writeResult(w, s.Studio.Presets(), err)
	case "apply":
		missing, err := s.Studio.ApplyPreset(name)
		writeResult(w, map[string]interface{}{"missing": missing, "mapping": s.Studio.Mapping()}, err)
	default:
		webutils.WriteError(w, diag.Errorf(diag.InvalidInput, "unknown preset action %q", action))
	}
}

func (s *Server) HandlerActionRetarget(w http.ResponseWriter, r *http.Request) {
	indices, err := s.Studio.Retarget()
	writeResult(w, map[string]interface{}{
		"clips":       indices,
		"diagnostics": s.Studio.Diagnostics(),
	}, err)
}

func (s *Server) HandlerActionClip(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		webutils.WriteError(w, diag.Errorf(diag.InvalidInput, "clip index is not integer: %v", err))
		return
	}
	switch action := mux.Vars(r)["action"]; action {
	case "play":
		res, err := s.Studio.Play(index)
		writeResult(w, res, err)
	case "duplicate":
		res, err := s.Studio.DuplicateClip(index)
		writeResult(w, res, err)
	case "rename":
		res, err := s.Studio.RenameClip(index, r.URL.Query().Get("name"))
		writeResult(w, res, err)
	case "remove":
		err := s.Studio.RemoveClip(index)
		writeResult(w, s.Studio.Clips(), err)
	default:
		webutils.WriteError(w, diag.Errorf(diag.InvalidInput, "unknown clip action %q", action))
	}
}

func (s *Server) HandlerActionPlayback(w http.ResponseWriter, r *http.Request) {
	switch action := mux.Vars(r)["action"]; action {
	case "pause":
		webutils.WriteJson(w, s.Studio.Pause())
	case "resume":
		res, err := s.Studio.Resume()
		writeResult(w, res, err)
	case "stop":
		webutils.WriteJson(w, s.Studio.Stop())
	case "loop":
		webutils.WriteJson(w, s.Studio.SetLoop(r.URL.Query().Get("on") != "false"))
	case "toggleloop":
		webutils.WriteJson(w, s.Studio.ToggleLoop())
	case "scrub":
		progress, err := queryFloat(r, "progress", 0)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteJson(w, s.Studio.Scrub(progress))
	case "tick":
		dt, err := queryFloat(r, "dt", 1/config.Get().Playback.FrameRate)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteJson(w, s.Studio.Tick(dt))
	case "state":
		webutils.WriteJson(w, s.Studio.Playback())
	default:
		webutils.WriteError(w, diag.Errorf(diag.InvalidInput, "unknown playback action %q", action))
	}
}

func (s *Server) HandlerActionProjectSave(w http.ResponseWriter, r *http.Request) {
	name, err := queryString(r, "name")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	_, err = s.Studio.SaveProject(name)
	writeResult(w, name, err)
}

func parseIndices(v string) ([]int, error) {
	if v == "" {
		return nil, nil
	}
	var res []int
	for _, part := range strings.Split(v, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, diag.Errorf(diag.InvalidInput, "clip index %q is not integer", part)
		}
		res = append(res, i)
	}
	return res, nil
}

func (s *Server) HandlerDumpExport(w http.ResponseWriter, r *http.Request) {
	indices, err := parseIndices(r.URL.Query().Get("clips"))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	data, _, err := s.Studio.Export(indices)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	name := "retargeted"
	if t := s.Studio.Info().Target; t != nil {
		name = t.Name
	}
	webutils.WriteFile(w, bytes.NewReader(data), name+".glb")
}

func (s *Server) HandlerDumpProject(w http.ResponseWriter, r *http.Request) {
	data, err := s.Studio.SaveProject("")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, bytes.NewReader(data), s.Studio.Info().Project+".zip")
}

func (s *Server) HandlerDumpFrames(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		webutils.WriteError(w, diag.Errorf(diag.InvalidInput, "clip index is not integer: %v", err))
		return
	}
	fps, err := queryFloat(r, "fps", config.Get().Playback.FrameRate)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	frames, err := s.Studio.Frames(index, fps)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJsonFile(w, frames, "frames_"+strconv.Itoa(index))
}

func (s *Server) HandlerDumpMapping(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "mapping"
	}
	p, err := bonemap.NewPreset(name, bonemap.FromEntries(s.Studio.Mapping()))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJsonFile(w, p, name)
}

func (s *Server) HandlerUploadProject(w http.ResponseWriter, r *http.Request) {
	data, _, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	info, err := s.Studio.OpenProject(data)
	writeResult(w, info, err)
}

// HandlerUploadModel stores an uploaded glb next to the other files of the host and loads it.
func (s *Server) HandlerUploadModel(w http.ResponseWriter, r *http.Request) {
	if s.Host == nil {
		webutils.WriteError(w, diag.Errorf(diag.IOAdjacent, "no host to store uploads"))
		return
	}
	data, filename, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	name := path.Join("uploads", path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if _, err := s.Host.SaveFile(name, data); err != nil {
		webutils.WriteError(w, err)
		return
	}
	r.URL.RawQuery = url.Values{"file": {name}}.Encode()
	s.HandlerActionLoad(w, r)
}
