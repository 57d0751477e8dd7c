package gatewaynode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(in.Response.Text) == "" {
		return GraphOutput{}, fmt.Errorf("%w: response text is empty", contractx.ErrValidation)
	}
	if in.Seq <= 0 {
		return GraphOutput{}, fmt.Errorf("%w: exchange was not recorded", contractx.ErrValidation)
	}
	return GraphOutput{Response: in.Response, Seq: in.Seq}, nil
}
