package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates(t *testing.T) {
	w := newWorld(t)
	svc := NewTemplateService(w.store.Templates)
	ctx := context.Background()
	in := TemplateInput{Title: "Build an emergency fund", Category: " Financial ", DurationDays: 30, CanDecline: true}

	_, err := svc.CreateTemplate(ctx, w.jessica, in)
	assert.ErrorIs(t, err, ErrForbidden)

	scoped := in
	scoped.ProgramID = &w.p2.ID
	_, err = svc.CreateTemplate(ctx, w.emily, scoped)
	assert.ErrorIs(t, err, ErrForbidden)

	tmpl, err := svc.CreateTemplate(ctx, w.emily, in)
	require.NoError(t, err)
	assert.Equal(t, "financial", tmpl.Category)
	assert.Equal(t, w.emily.ID, tmpl.CreatedBy)

	zero := in
	zero.DurationDays = 0
	_, err = svc.CreateTemplate(ctx, w.emily, zero)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateTemplate(ctx, w.sarah, TemplateInput{Title: "Mentor meeting", DurationDays: 7})
	require.NoError(t, err)

	all, err := svc.ListTemplates(ctx, w.sarah)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	own, err := svc.ListOwnTemplates(ctx, w.emily)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, tmpl.ID, own[0].ID)

	_, err = svc.ListTemplates(ctx, w.maria)
	assert.ErrorIs(t, err, ErrForbidden)
}
