package dao

import (
	"context"
	"docinsight-backend/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTemplateDAO_CRUD(t *testing.T) {
	ctx := context.Background()
	d := NewPromptTemplateDAO(OpenTestDB(t))

	tmpl := &model.PromptTemplate{
		Name:       "Key Insights",
		PromptText: "Extract insights: {document_content}",
		Category:   model.CategoryAnalysis,
		IsPublic:   true,
		Variables:  []model.PromptVariable{{Name: "document_content", Required: true}},
	}
	require.NoError(t, d.Create(ctx, tmpl))

	exists, err := d.ExistsByName(ctx, "Key Insights")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, d.IncrementUsage(ctx, tmpl.ID))
	require.NoError(t, d.IncrementUsage(ctx, tmpl.ID))

	found, err := d.FindByID(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 2, found.UsageCount)
	require.Len(t, found.Variables, 1)
	assert.Equal(t, "document_content", found.Variables[0].Name)

	found.Description = "updated"
	require.NoError(t, d.Save(ctx, found))

	templates, err := d.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "updated", templates[0].Description)

	deleted, err := d.Delete(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = d.Delete(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
