package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/renderer"
	"github.com/etnz/allocator/service"
)

// Portfolios is the part of the service the advisor reads.
type Portfolios interface {
	Profiles(ctx context.Context) ([]allocator.Profile, error)
	Portfolios(ctx context.Context, activeOnly bool) ([]allocator.Portfolio, error)
	Portfolio(ctx context.Context, id string) (allocator.Portfolio, error)
	Value(ctx context.Context, id string) (*allocator.Valuation, error)
	PreviewRebalance(ctx context.Context, in service.RebalanceInput) (*service.Rebalance, error)
	Dividends(ctx context.Context, id string) (*service.Income, error)
	DefaultForecast() service.ForecastInput
	Forecast(ctx context.Context, id string, in service.ForecastInput) (*allocator.Forecast, error)
	Consolidated(ctx context.Context) (*allocator.Consolidation, error)
}

func newFacilitator(model string, experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are in charge of the conversation and of solving the user's request.

			The experts available as Tools keep the context of your previous questions.
			Ask the Advisor about the user's portfolios, their allocation profile and
			what a rebalance would buy or sell. Ask the Trader about market news.

			Never claim a rebalance was made: the Advisor can only preview one.
			Amounts are in the currency of the portfolio.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewTrader returns an expert grounded on Google Search.
func NewTrader(model string) *Expert {
	return &Expert{
		Name: "Trader",
		Description: `An expert trader aware of the listed companies and ETFs and of the latest
		market news. Ask the Trader whenever you need recent or grounding information about an asset.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an expert in trading on the Brazilian exchange. You leverage Google Search
			to ground your assertions, and you relate the latest news to the question.
			`}}},
		},
	}
}

// NewAdvisor returns the expert reading the user's portfolios through svc.
func NewAdvisor(model string, svc Portfolios) *Expert {
	lib := AdvisorFunctions(svc)
	return &Expert{
		Name: "Advisor",
		Description: `The Advisor knows the user's portfolios: their positions, value, allocation profile,
		dividends, goals, the sum of all of them and the migration a rebalance would produce.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You advise the user about their portfolios. Each portfolio follows an allocation
			profile splitting its value between equities, international ETFs and fixed income ETFs.

			Use the tools to list the portfolios, show one of them, or preview a rebalance.
			Show the dividends or the forecast of a portfolio when asked about income or goals,
			and the consolidated view when asked about the whole wealth.
			Portfolios are identified by their id; list them first when you only know a name.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

// AdvisorFunctions returns the functions of the advisor.
func AdvisorFunctions(svc Portfolios) []Function {
	return []Function{
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "list_portfolios",
				Description: "Lists the portfolios, most recent first, with their id, profile and status.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"active_only": {Type: genai.TypeBoolean, Description: "Hide the portfolios closed by a rebalance."},
					},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown table of portfolios."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				active, _ := args["active_only"].(bool)
				list, err := svc.Portfolios(ctx, active)
				if err != nil {
					return "", err
				}
				return renderer.PortfoliosMarkdown(list), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "show_portfolio",
				Description: "Values a portfolio: its positions, prices, gains and the drift of each category from its profile.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id": {Type: genai.TypeString, Description: "The portfolio id."},
					},
					Required: []string{"id"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown report of the portfolio."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				id, err := stringArg(args, "id", true)
				if err != nil {
					return "", err
				}
				v, err := svc.Value(ctx, id)
				if err != nil {
					return "", err
				}
				profile, err := profileOf(ctx, svc, v.Portfolio.ProfileID)
				if err != nil {
					return "", err
				}
				return renderer.PortfolioMarkdown(v, profile), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name: "preview_rebalance",
				Description: `Previews the rebalance of a portfolio towards a profile with an optional contribution.
				Nothing is written: the result shows the plan and the moves it would make.`,
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":           {Type: genai.TypeString, Description: "The portfolio id."},
						"profile_id":   {Type: genai.TypeString, Description: "conservative, moderate or aggressive. Defaults to the current profile."},
						"contribution": {Type: genai.TypeNumber, Description: "New cash to invest, zero by default."},
					},
					Required: []string{"id"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown report of the plan and of the migration."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				in := service.RebalanceInput{}
				var err error
				if in.PortfolioID, err = stringArg(args, "id", true); err != nil {
					return "", err
				}
				if in.ProfileID, err = stringArg(args, "profile_id", false); err != nil {
					return "", err
				}
				amount, err := numberArg(args, "contribution")
				if err != nil {
					return "", err
				}
				in.Contribution = allocator.M(amount, "")

				rb, err := svc.PreviewRebalance(ctx, in)
				if err != nil {
					return "", err
				}
				profile, err := profileOf(ctx, svc, rb.Migration.Portfolio.ProfileID)
				if err != nil {
					return "", err
				}
				return renderer.PlanMarkdown(rb.Plan, profile) + "\n" + renderer.MigrationMarkdown(rb.Migration), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "show_dividends",
				Description: "Lists the dividends of a portfolio with their monthly and yearly totals, yield on cost and annual projection.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id": {Type: genai.TypeString, Description: "The portfolio id."},
					},
					Required: []string{"id"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown report of the dividends."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				id, err := stringArg(args, "id", true)
				if err != nil {
					return "", err
				}
				p, err := svc.Portfolio(ctx, id)
				if err != nil {
					return "", err
				}
				in, err := svc.Dividends(ctx, id)
				if err != nil {
					return "", err
				}
				return renderer.DividendsMarkdown(p.Name, in.Dividends, in.Summary), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name: "forecast_portfolio",
				Description: `Shows the progress of a portfolio towards its goal and projects its value with a monthly
				contribution compounded at an annual rate.`,
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":      {Type: genai.TypeString, Description: "The portfolio id."},
						"monthly": {Type: genai.TypeNumber, Description: "Monthly contribution, 1000 by default."},
						"rate":    {Type: genai.TypeNumber, Description: "Annual rate in percent, 10 by default."},
						"years":   {Type: genai.TypeNumber, Description: "Years to project, 10 by default."},
					},
					Required: []string{"id"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown report of the goal and of the projection."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				id, err := stringArg(args, "id", true)
				if err != nil {
					return "", err
				}
				p, err := svc.Portfolio(ctx, id)
				if err != nil {
					return "", err
				}
				in := svc.DefaultForecast()
				for name, set := range map[string]func(float64){
					"monthly": func(v float64) { in.Monthly = allocator.M(v, "") },
					"rate":    func(v float64) { in.Rate = allocator.Percent(v) },
					"years":   func(v float64) { in.Years = int(v) },
				} {
					if _, ok := args[name]; !ok {
						continue
					}
					v, err := numberArg(args, name)
					if err != nil {
						return "", err
					}
					set(v)
				}
				f, err := svc.Forecast(ctx, id, in)
				if err != nil {
					return "", err
				}
				return renderer.ForecastMarkdown(p.Name, f), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "consolidated",
				Description: "Sums the active portfolios: total value, split by category and share of each portfolio.",
				Parameters:  &genai.Schema{Type: genai.TypeObject},
				Response:    &genai.Schema{Type: genai.TypeString, Description: "A markdown report of the consolidated wealth."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				c, err := svc.Consolidated(ctx)
				if err != nil {
					return "", err
				}
				return renderer.ConsolidationMarkdown(c), nil
			},
		},
	}
}

func profileOf(ctx context.Context, svc Portfolios, id string) (allocator.Profile, error) {
	profiles, err := svc.Profiles(ctx)
	if err != nil {
		return allocator.Profile{}, err
	}
	for _, p := range profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return allocator.Profile{}, fmt.Errorf("unknown profile %q", id)
}
