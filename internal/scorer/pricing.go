package scorer

type tokenPrice struct {
	input  float64 // USD per input token
	output float64 // USD per output token
}

// prices is keyed by "provider/model". Local inference (Ollama) and unknown
// pairs cost 0; costing never fails the metrics stage.
var prices = map[string]tokenPrice{
	"groq/llama-3.1-70b-versatile": {0.00000059, 0.00000079},
	"groq/llama-3.1-8b-instant":    {0.00000005, 0.00000008},
	"groq/llama3-70b-8192":         {0.00000059, 0.00000079},
	"groq/llama3-8b-8192":          {0.00000005, 0.00000008},
	"groq/mixtral-8x7b-32768":      {0.00000024, 0.00000024},
	"groq/gemma2-9b-it":            {0.00000020, 0.00000020},
	"openai/gpt-4o":                {0.0000025, 0.00001},
	"openai/gpt-4o-mini":           {0.00000015, 0.0000006},
	"openai/gpt-3.5-turbo":         {0.0000005, 0.0000015},
}

// Cost estimates the dollar cost of one call from its token counts.
func Cost(provider, model string, inputTokens, outputTokens int) float64 {
	p, ok := prices[provider+"/"+model]
	if !ok {
		return 0.0
	}
	return float64(inputTokens)*p.input + float64(outputTokens)*p.output
}
