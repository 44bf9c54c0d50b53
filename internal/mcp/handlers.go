package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/coopindex/internal/cooperation"
	"github.com/nvandessel/coopindex/internal/game"
	"github.com/nvandessel/coopindex/internal/population"
	"github.com/nvandessel/coopindex/internal/ratelimit"
)

const (
	// maxChainStates caps the largest reputation chain a tool call may
	// solve. Larger populations are available from the CLI.
	maxChainStates = 20000

	// maxSweepValues caps the number of points in one sweep call.
	maxSweepValues = 32

	defaultParamsURI = "coopindex://params/default"
)

// registerTools registers all coopindex MCP tools with the server.
func (s *Server) registerTools() error {
	// Register cooperation_index tool
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "cooperation_index",
		Description: "Compute the expected long-run donation rate of the population at evolutionary equilibrium",
	}, s.handleCooperationIndex)

	// Register fixation_matrix tool
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "fixation_matrix",
		Description: "Compute fixation probabilities between reputation thresholds and the stationary distribution of the fixation chain",
	}, s.handleFixationMatrix)

	// Register donation_probability tool
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "donation_probability",
		Description: "Probability that a donor with the given threshold donates to a recipient with the given reputation",
	}, s.handleDonationProbability)

	// Register sweep tool
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sweep",
		Description: "Evaluate the cooperation index across a list of values of one parameter",
	}, s.handleSweep)

	return nil
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         defaultParamsURI,
		Name:        "coopindex-default-params",
		Description: "Game parameters tool calls start from when an override is omitted.",
		MIMEType:    "application/json",
	}, s.handleDefaultParamsResource)

	return nil
}

// handleDefaultParamsResource returns the server's default parameters.
func (s *Server) handleDefaultParamsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	data, err := json.MarshalIndent(viewOf(s.base), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding default params: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      defaultParamsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

// resolve applies overrides to the defaults and checks the result is valid
// and small enough to solve inside a tool call.
func (s *Server) resolve(in ParamsInput) (game.Params, error) {
	p := in.apply(s.base)
	if err := p.Validate(); err != nil {
		return p, err
	}
	if states := largestChain(p); states > maxChainStates {
		return p, fmt.Errorf("num_agents=%d with levels=%d needs chains of %d states (limit %d)",
			p.NumAgents, p.Levels, states, maxChainStates)
	}
	return p, nil
}

// largestChain returns the state count of the largest reputation chain the
// fixation matrix for p solves.
func largestChain(p game.Params) int {
	largest := population.ChainSize(p.Levels, p.NumAgents, 0)
	for k := 1; k < p.NumAgents; k++ {
		if n := population.ChainSize(p.Levels, k, p.NumAgents-k); n > largest {
			largest = n
		}
	}
	return largest
}

// handleCooperationIndex implements the cooperation_index tool.
func (s *Server) handleCooperationIndex(ctx context.Context, req *sdk.CallToolRequest, args CooperationIndexInput) (_ *sdk.CallToolResult, _ CooperationIndexOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("cooperation_index", start, retErr, paramsMetadata(args.Params, nil))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "cooperation_index"); err != nil {
		return nil, CooperationIndexOutput{}, err
	}

	p, err := s.resolve(args.Params)
	if err != nil {
		return nil, CooperationIndexOutput{}, err
	}

	index, err := s.engine.Index(ctx, p)
	if err != nil {
		return nil, CooperationIndexOutput{}, fmt.Errorf("failed to compute cooperation index: %w", err)
	}

	return nil, CooperationIndexOutput{
		Params: viewOf(p),
		Index:  index,
	}, nil
}

// handleFixationMatrix implements the fixation_matrix tool.
func (s *Server) handleFixationMatrix(ctx context.Context, req *sdk.CallToolRequest, args FixationMatrixInput) (_ *sdk.CallToolResult, _ FixationMatrixOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("fixation_matrix", start, retErr, paramsMetadata(args.Params, nil))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "fixation_matrix"); err != nil {
		return nil, FixationMatrixOutput{}, err
	}

	p, err := s.resolve(args.Params)
	if err != nil {
		return nil, FixationMatrixOutput{}, err
	}

	fix, err := s.engine.Fixation(ctx, p)
	if err != nil {
		return nil, FixationMatrixOutput{}, fmt.Errorf("failed to compute fixation matrix: %w", err)
	}

	return nil, FixationMatrixOutput{
		Params:      viewOf(p),
		Fixation:    fix.Matrix.Raw,
		Transitions: fix.Matrix.Transitions.Dense(),
		Stationary:  fix.Stationary.Distribution,
		Method:      string(fix.Stationary.Method),
	}, nil
}

// handleDonationProbability implements the donation_probability tool.
func (s *Server) handleDonationProbability(ctx context.Context, req *sdk.CallToolRequest, args DonationProbabilityInput) (_ *sdk.CallToolResult, _ DonationProbabilityOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("donation_probability", start, retErr, paramsMetadata(args.Params, map[string]any{
			"threshold": args.Threshold, "image": args.Image,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "donation_probability"); err != nil {
		return nil, DonationProbabilityOutput{}, err
	}

	p := args.Params.apply(s.base)
	if p.Levels < 1 {
		return nil, DonationProbabilityOutput{}, fmt.Errorf("%w: levels must be >= 1, got %d", game.ErrInvalidParameter, p.Levels)
	}
	if err := p.Noise.Validate(); err != nil {
		return nil, DonationProbabilityOutput{}, err
	}
	if args.Threshold < 0 {
		return nil, DonationProbabilityOutput{}, fmt.Errorf("%w: threshold must be >= 0, got %d", game.ErrInvalidParameter, args.Threshold)
	}
	if args.Image < 0 || args.Image >= p.Levels {
		return nil, DonationProbabilityOutput{}, fmt.Errorf("%w: image must be between 0 and %d, got %d", game.ErrInvalidParameter, p.Levels-1, args.Image)
	}

	return nil, DonationProbabilityOutput{
		Probability: p.Noise.DonationProbability(args.Threshold, args.Image, p.Levels),
		Qualifies:   args.Threshold <= p.Levels && args.Image >= args.Threshold,
	}, nil
}

// handleSweep implements the sweep tool.
func (s *Server) handleSweep(ctx context.Context, req *sdk.CallToolRequest, args SweepInput) (_ *sdk.CallToolResult, _ SweepOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sweep", start, retErr, paramsMetadata(args.Params, map[string]any{
			"param": args.Param, "values": formatValues(args.Values),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sweep"); err != nil {
		return nil, SweepOutput{}, err
	}

	if len(args.Values) == 0 {
		return nil, SweepOutput{}, fmt.Errorf("values must not be empty")
	}
	if len(args.Values) > maxSweepValues {
		return nil, SweepOutput{}, fmt.Errorf("too many values: %d (limit %d)", len(args.Values), maxSweepValues)
	}

	base := args.Params.apply(s.base)
	for _, v := range args.Values {
		p, err := cooperation.With(base, args.Param, v)
		if err != nil {
			return nil, SweepOutput{}, err
		}
		if p.Validate() == nil {
			if states := largestChain(p); states > maxChainStates {
				return nil, SweepOutput{}, fmt.Errorf("%s=%g needs chains of %d states (limit %d)",
					args.Param, v, states, maxChainStates)
			}
		}
	}

	points, err := s.engine.Sweep(ctx, base, args.Param, args.Values)
	if err != nil {
		return nil, SweepOutput{}, fmt.Errorf("failed to run sweep: %w", err)
	}

	return nil, SweepOutput{
		Param:  args.Param,
		Points: points,
	}, nil
}
