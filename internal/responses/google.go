package responses

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"gatewire/internal/core"
)

// groundingNoise lists groundingMetadata fields dropped before the metadata
// is returned to callers.
var groundingNoise = []string{"searchEntryPoint.renderedContent", "groundingSupports"}

func formatGoogle(data []byte, opts Options) (*core.Response, error) {
	root, err := parse(data, "google-ai-studio")
	if err != nil {
		return nil, err
	}
	candidate := root.Get("candidates.0")
	if !candidate.Exists() {
		return formatGeneric(data, opts)
	}

	resp := &core.Response{}
	var texts, thoughts []string
	candidate.Get("content.parts").ForEach(func(idx, part gjson.Result) bool {
		switch {
		case part.Get("thought").Bool():
			thoughts = append(thoughts, part.Get("text").String())
		case part.Get("text").Exists():
			texts = append(texts, part.Get("text").String())
		case part.Get("functionCall").Exists():
			resp.ToolCalls = append(resp.ToolCalls, map[string]any{
				"name":      part.Get("functionCall.name").String(),
				"arguments": decodeAny(part.Get("functionCall.args")),
			})
		case part.Get("executableCode").Exists():
			code := part.Get("executableCode.code").String()
			texts = append(texts, codeArtifact(int(idx.Int()), codeLanguage(part.Get("executableCode.language").String(), code), code))
		case part.Get("codeExecutionResult").Exists():
			texts = append(texts, part.Get("codeExecutionResult.output").String())
		}
		return true
	})

	resp.Response = finishText(strings.Join(texts, "\n"), opts)
	resp.Thinking = strings.Join(thoughts, "\n")
	setUsage(resp, root.Get("usageMetadata"))

	if gm := candidate.Get("groundingMetadata"); gm.IsObject() {
		raw := gm.Raw
		for _, path := range groundingNoise {
			if stripped, err := sjson.Delete(raw, path); err == nil {
				raw = stripped
			}
		}
		resp.EnsureData().SearchGrounding = []byte(raw)
	}
	return resp, nil
}

func codeArtifact(index int, language, code string) string {
	return fmt.Sprintf("<artifact identifier=\"code-execution-%d\" type=\"application/vnd.ant.code\" language=\"%s\" title=\"Code execution\">\n%s\n</artifact>",
		index, language, code)
}

// codeLanguage normalizes the declared language, guessing from the code
// when none is declared.
func codeLanguage(declared, code string) string {
	lang := strings.ToLower(declared)
	if lang != "" && lang != "language_unspecified" {
		return lang
	}
	switch {
	case strings.Contains(code, "def ") || strings.Contains(code, "import ") || strings.Contains(code, "print("):
		return "python"
	case strings.Contains(code, "console.log") || strings.Contains(code, "function ") || strings.Contains(code, "const "):
		return "javascript"
	}
	return "text"
}
