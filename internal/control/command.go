// Package control turns key presses and MQTT messages into commands and
// applies them to the monitor.
package control

import (
	"fmt"
	"time"

	"github.com/care/posturewatch/internal/config"
)

// Command names
const (
	CmdToggle         = "toggle"
	CmdSetFeature     = "set_feature"
	CmdStartRecording = "start_recording"
	CmdStopRecording  = "stop_recording"
	CmdGetStatus      = "get_status"
	CmdShutdown       = "shutdown"
)

// Command represents a control command from the keyboard or the control topic
type Command struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
	// Source is "keyboard" or "mqtt"; it is not part of the wire format
	Source string `json:"-"`
}

// Response represents a command response
type Response struct {
	CommandAck string                 `json:"command_ack"`
	Status     string                 `json:"status"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// Target is what commands act on. The monitor implements it on its loop
// goroutine.
type Target interface {
	ToggleFeature(f config.Feature) (bool, error)
	SetFeature(f config.Feature, on bool) error
	StartRecording() error
	StopRecording() error
	Status() map[string]interface{}
	Shutdown()
}

// Dispatch applies cmd to t and builds the response
func Dispatch(cmd Command, t Target) Response {
	resp := Response{
		CommandAck: cmd.Command,
		Status:     "success",
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}

	fail := func(err error) Response {
		resp.Status = "error"
		resp.Error = err.Error()
		return resp
	}

	switch cmd.Command {
	case CmdToggle:
		f, err := featureParam(cmd.Params)
		if err != nil {
			return fail(err)
		}
		on, err := t.ToggleFeature(f)
		if err != nil {
			return fail(err)
		}
		resp.Data = map[string]interface{}{"feature": string(f), "enabled": on}

	case CmdSetFeature:
		f, err := featureParam(cmd.Params)
		if err != nil {
			return fail(err)
		}
		on, ok := cmd.Params["enabled"].(bool)
		if !ok {
			return fail(fmt.Errorf("set_feature requires boolean param 'enabled'"))
		}
		if err := t.SetFeature(f, on); err != nil {
			return fail(err)
		}
		resp.Data = map[string]interface{}{"feature": string(f), "enabled": on}

	case CmdStartRecording:
		if err := t.StartRecording(); err != nil {
			return fail(err)
		}
		resp.Data = map[string]interface{}{"recording": true}

	case CmdStopRecording:
		if err := t.StopRecording(); err != nil {
			return fail(err)
		}
		resp.Data = map[string]interface{}{"recording": false}

	case CmdGetStatus:
		resp.Data = t.Status()

	case CmdShutdown:
		t.Shutdown()
		resp.Data = map[string]interface{}{
			"shutdown_initiated": true,
			"message":            "graceful shutdown in progress",
		}

	default:
		return fail(fmt.Errorf("unknown command: %s", cmd.Command))
	}

	return resp
}

func featureParam(params map[string]interface{}) (config.Feature, error) {
	name, ok := params["feature"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("missing string param 'feature'")
	}
	f := config.Feature(name)
	var known config.Features
	if _, err := known.Get(f); err != nil {
		return "", err
	}
	return f, nil
}
