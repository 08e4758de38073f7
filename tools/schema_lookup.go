package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/rs/zerolog/log"
)

// KnowledgeBaseAPI is the retrieval subset of the agent runtime client.
type KnowledgeBaseAPI interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// SchemaLookup answers questions about the Athena tables and columns from
// the Bedrock knowledge base holding the data dictionary.
type SchemaLookup struct {
	client          KnowledgeBaseAPI
	knowledgeBaseID string
}

func NewSchemaLookup(client KnowledgeBaseAPI, knowledgeBaseID string) *SchemaLookup {
	return &SchemaLookup{client: client, knowledgeBaseID: knowledgeBaseID}
}

func (t *SchemaLookup) Name() string { return "lookup_schema" }

func (t *SchemaLookup) Description() string {
	return "Ask the knowledge base about available tables and columns."
}

func (t *SchemaLookup) InputSchema() map[string]any {
	return objectSchema(map[string]string{
		"question": "Natural language question about the data schema",
	}, "question")
}

func (t *SchemaLookup) Invoke(ctx context.Context, args map[string]any) string {
	question := stringArg(args, "question")

	out, err := t.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(t.knowledgeBaseID),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(question)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(3),
			},
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("schema lookup failed")
		return fmt.Sprintf("Error accessing schema information: %v", err)
	}

	if len(out.RetrievalResults) == 0 {
		return "No schema information found for your query."
	}

	docs := make([]string, 0, len(out.RetrievalResults))
	for _, result := range out.RetrievalResults {
		if result.Content != nil {
			docs = append(docs, aws.ToString(result.Content.Text))
		}
	}
	return strings.Join(docs, "\n")
}
