package agent

import (
	"fmt"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

// defaultSpecs returns the nine planning agents. Each prompt asks for JSON
// only; the shared ParseJSON parser handles the response.
func defaultSpecs() []Spec {
	specs := []Spec{
		{
			Key:  "architect",
			Name: "Architect",
			BuildPrompt: func(ctx domain.PromptContext) string {
				return fmt.Sprintf(`You are a principal cloud architect fluent in Java 21, Spring Boot 3.3, Kafka 3.7, Terraform and AWS / Azure / GCP.
Project: %s

Return **only** JSON with keys:
"architecture_pattern", "language_stack" (backend/messaging/streaming),
"cloud" (aws/azure/gcp, each with compute/storage/networking/observability),
"infrastructure_as_code", "ci_cd", "observability" (metrics/tracing/logs),
"security" (list), "cost_per_day" (number).`, ctx.Description)
			},
		},
		{
			Key:  "pm",
			Name: "PM",
			BuildPrompt: func(ctx domain.PromptContext) string {
				return fmt.Sprintf(`You are a PMP certified for **daily 8-hour planning**.
Project: %s
Return JSON:
{"duration_days": <number>, "gantt": [{"day": <number>, "task": "...", "owner": "..."}]}`, ctx.Description)
			},
		},
		{
			Key:  "cost",
			Name: "DailyCostEstimator",
			BuildPrompt: func(ctx domain.PromptContext) string {
				return fmt.Sprintf(`You are a FinOps expert working at **daily 8-hour granularity**.
Project: %s

Return **only** JSON with keys "currency", "daily_rates" (role → number),
"cloud_costs_per_day", "other_costs_per_day", "total_cost_per_day" and
"total_project_cost". Keep numbers numeric.`, ctx.Description)
			},
		},
		{
			Key:  "security",
			Name: "Security",
			BuildPrompt: func(ctx domain.PromptContext) string {
				return fmt.Sprintf(`Security lead for Java/Spring cloud.
Project: %s
Return JSON:
{"threat_model": [...], "controls": [...], "compliance": [...], "pen_test_plan": [...]}`, ctx.Description)
			},
		},
		{
			Key:  "devops",
			Name: "DevOps",
			BuildPrompt: func(ctx domain.PromptContext) string {
				return fmt.Sprintf(`You are a DevOps lead for Java 21 / Spring Boot 3.3 microservices on Kubernetes with GitOps.
Project: %s
Return **only** JSON with keys "containerization", "kubernetes", "gitops",
"ci_cd" and "environments".`, ctx.Description)
			},
		},
		{
			Key:  "performance",
			Name: "Performance",
			BuildPrompt: func(ctx domain.PromptContext) string {
				return fmt.Sprintf(`You are a performance engineer for Java 21 / Spring Boot 3.3 and Kafka 3.7.
Project: %s
Return **only** JSON with keys "service_slo" (p99_latency_ms, availability,
error_budget_monthly_minutes), "bottleneck_risks", "tuning", "test_plan"
and "capacity_model".`, ctx.Description)
			},
		},
		{
			Key:  "data",
			Name: "Data",
			BuildPrompt: func(ctx domain.PromptContext) string {
				return fmt.Sprintf(`You are a data/platform engineer for transactional Java/Spring + Kafka + Postgres.
Project: %s
Return **only** JSON with keys "storage", "schema_governance", "pipelines",
"dq" and "retention".`, ctx.Description)
			},
		},
		{
			Key:  "ux",
			Name: "UX",
			BuildPrompt: func(ctx domain.PromptContext) string {
				return fmt.Sprintf(`You are a UX lead for a FinTech-grade web/mobile product with secure flows.
Project: %s
Return **only** JSON with keys "personas", "journeys", "ui_patterns" and
"non_functional".`, ctx.Description)
			},
		},
		{
			Key:  "datasci",
			Name: "DataScientist",
			BuildPrompt: func(ctx domain.PromptContext) string {
				prompt := fmt.Sprintf(`You are a senior data scientist for a Java/Spring + Kafka + Postgres product at FinTech scale.
Design a practical, production-minded DS plan with clear experiments and guardrails.

Project context:
%s

Return **ONLY** JSON with keys "problem_framing", "data_design",
"eval_protocol", "baselines", "mlops" and "experiment_backlog".`, ctx.Description)
				if ctx.DatasetID != "" {
					prompt += fmt.Sprintf("\nAn effort dataset is available (id %s); reference it under data_design.sources.", ctx.DatasetID)
				}
				return prompt
			},
		},
	}

	for i := range specs {
		specs[i].Parse = ParseJSON(specs[i].Name)
	}
	return specs
}
