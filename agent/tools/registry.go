package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/afquintero/cierre-agent/agent/contract"
	metricsx "github.com/afquintero/cierre-agent/pkg/metrics"
)

// Descriptor declares one tool exposed to the model. Desc is part of the
// model-facing contract: the model picks a tool by matching user intent
// against this text, so its wording is functional, not cosmetic.
type Descriptor struct {
	Name   string
	Desc   string
	Params map[string]*schema.ParameterInfo
	Fetch  contractx.Fetcher
}

// Registry is the fixed set of data fetchers the model may call. It is built
// once at startup and immutable afterwards.
type Registry struct {
	descriptors []Descriptor
	byName      map[string]int
	metrics     *metricsx.Metrics
}

func NewRegistry(metrics *metricsx.Metrics, descriptors ...Descriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: registry needs at least one tool", contractx.ErrValidation)
	}

	byName := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
		}
		if d.Fetch == nil {
			return nil, fmt.Errorf("%w: tool %s has no fetcher", contractx.ErrValidation, d.Name)
		}
		if _, dup := byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool name %s", contractx.ErrValidation, d.Name)
		}
		byName[d.Name] = i
	}

	return &Registry{
		descriptors: descriptors,
		byName:      byName,
		metrics:     metrics,
	}, nil
}

// List returns the tool schemas in registration order.
func (r *Registry) List() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		info := &schema.ToolInfo{
			Name: d.Name,
			Desc: d.Desc,
		}
		if len(d.Params) > 0 {
			info.ParamsOneOf = schema.NewParamsOneOfByParams(d.Params)
		}
		infos = append(infos, info)
	}
	return infos
}

// Invoke dispatches to the named fetcher. A name outside the registry is an
// error (the turn fails recoverably); a fetcher failure is absorbed here and
// returned as a degraded result so the model can report unavailability.
func (r *Registry) Invoke(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	idx, ok := r.byName[req.Tool]
	if !ok {
		return contractx.ToolResult{}, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, req.Tool)
	}

	start := time.Now()
	out, err := r.descriptors[idx].Fetch(ctx, req.Args)
	r.metrics.ObserveTool(req.Tool, time.Since(start), err != nil)

	if err != nil {
		log.Warn().Str("tool", req.Tool).Err(err).Msg("tool fetch degraded to empty result")
		return contractx.ToolResult{Tool: req.Tool, Err: err}, nil
	}
	return contractx.ToolResult{Tool: req.Tool, Output: out}, nil
}
