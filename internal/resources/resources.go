package resources

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workdigest/internal/app"
	"github.com/teemow/workdigest/internal/pipeline"
	"github.com/teemow/workdigest/internal/server"
)

// Resource URIs.
const (
	ProfilesURI = "workdigest://profiles"
	SettingsURI = "workdigest://settings"
)

var errNoApp = errors.New("server is not configured")

type stageInfo struct {
	Name        string               `json:"name"`
	Constraints pipeline.Constraints `json:"constraints"`
}

type profileInfo struct {
	Name   string      `json:"name"`
	Stages []stageInfo `json:"stages"`
}

type settingsInfo struct {
	Account          string `json:"account"`
	Model            string `json:"model"`
	Concurrency      int    `json:"concurrency"`
	PreserveOrder    bool   `json:"preserve_order"`
	SequentialStages bool   `json:"sequential_stages"`
	StageTimeout     string `json:"stage_timeout"`
	CacheEnabled     bool   `json:"cache_enabled"`
	MaxMessages      int    `json:"max_messages"`
	TimeZone         string `json:"time_zone"`
	CalendarID       string `json:"calendar_id"`
}

// RegisterResources registers the profile and settings resources.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	s.AddResource(mcp.NewResource(ProfilesURI, "Analysis Profiles",
		mcp.WithResourceDescription("Stages and output constraints used by the report tools"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, profiles())
	})

	s.AddResource(mcp.NewResource(SettingsURI, "Settings",
		mcp.WithResourceDescription("Effective configuration of this server, without credentials"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		info, err := settings(sc)
		if err != nil {
			return nil, err
		}
		return jsonContents(request.Params.URI, info)
	})

	return nil
}

func profiles() []profileInfo {
	var out []profileInfo
	for _, name := range []string{app.ProfileDrive, app.ProfileEmail, app.ProfileTranscript} {
		p, _ := app.ProfileByName(name)
		info := profileInfo{Name: p.Name}
		for _, st := range p.Stages {
			info.Stages = append(info.Stages, stageInfo{Name: st.Name, Constraints: st.Constraints})
		}
		out = append(out, info)
	}
	return out
}

func settings(sc *server.ServerContext) (*settingsInfo, error) {
	if sc == nil || sc.App() == nil {
		return nil, errNoApp
	}
	a := sc.App()
	cfg := a.Config()
	status, _ := a.CheckCache(context.Background())
	return &settingsInfo{
		Account:          a.Account(""),
		Model:            cfg.LLM.Model,
		Concurrency:      cfg.Pipeline.Concurrency,
		PreserveOrder:    cfg.Pipeline.PreserveOrder,
		SequentialStages: cfg.Pipeline.SequentialStages,
		StageTimeout:     cfg.Pipeline.StageTimeout.String(),
		CacheEnabled:     status != "disabled",
		MaxMessages:      cfg.Email.MaxMessages,
		TimeZone:         cfg.Calendar.TimeZone,
		CalendarID:       cfg.Calendar.CalendarID,
	}, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
