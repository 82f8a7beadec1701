package smartfill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

const sideTableHTML = `<html><body>
<table>
  <tr><td>Name:</td><td></td></tr>
  <tr><td>Grade:</td><td></td></tr>
  <tr><td>Date:</td><td></td></tr>
</table>
</body></html>`

const belowTableHTML = `<html><body>
<table>
  <tr><td>1. What is the theme?</td></tr>
  <tr><td></td></tr>
  <tr><td>2. Who is the narrator?</td></tr>
  <tr><td></td></tr>
</table>
</body></html>`

func TestDetectLayoutSide(t *testing.T) {
	info := DetectLayoutFromExport(sideTableHTML, 2)
	assert.Equal(t, schemas.LayoutSide, info.Layout)
	assert.Equal(t, 3, info.Rows)
}

func TestDetectLayoutBelow(t *testing.T) {
	info := DetectLayoutFromExport(belowTableHTML, 2)
	assert.Equal(t, schemas.LayoutBelow, info.Layout)
	assert.Equal(t, 4, info.Rows)
}

func TestDetectLayoutPlain(t *testing.T) {
	cases := map[string]string{
		"no table":        `<html><body><p>Just instructions.</p></body></html>`,
		"empty input":     ``,
		"single row":      `<html><table><tr><td>Name:</td><td></td></tr></table></html>`,
		"populated cells": `<html><table><tr><td>Q</td><td>A</td></tr><tr><td>Q2</td><td>A2</td></tr></table></html>`,
	}
	for name, markup := range cases {
		t.Run(name, func(t *testing.T) {
			info := DetectLayoutFromExport(markup, 2)
			assert.Equal(t, schemas.LayoutPlain, info.Layout)
			assert.Zero(t, info.Rows)
		})
	}
}

func TestDetectLayoutMinRowsThreshold(t *testing.T) {
	// One qualifying row is not enough evidence at minRows=2 but suffices at 1.
	markup := `<html><table>
		<tr><td>Name:</td><td></td></tr>
		<tr><td>Write your essay in the space provided below this table.</td><td>done</td></tr>
	</table></html>`

	assert.Equal(t, schemas.LayoutPlain, DetectLayoutFromExport(markup, 2).Layout)
	assert.Equal(t, schemas.LayoutSide, DetectLayoutFromExport(markup, 1).Layout)
}

func TestDetectLayoutSideWinsOverBelow(t *testing.T) {
	// Rows qualifying for both tests classify as side; the side test runs
	// first because two-cell prompt rows are the stronger structural signal.
	markup := `<html><table>
		<tr><td>Name:</td><td></td></tr>
		<tr><td></td><td></td></tr>
		<tr><td>Grade:</td><td></td></tr>
		<tr><td></td><td></td></tr>
	</table></html>`
	assert.Equal(t, schemas.LayoutSide, DetectLayoutFromExport(markup, 2).Layout)
}

func TestFetchDocLayoutFailuresYieldPlain(t *testing.T) {
	ctx := context.Background()

	page := &fakePage{exportErr: assert.AnError}
	assert.Equal(t, schemas.LayoutPlain, FetchDocLayout(ctx, page, "https://example.com/export", 2).Layout)

	page = &fakePage{exportBody: sideTableHTML, exportStatus: 403}
	assert.Equal(t, schemas.LayoutPlain, FetchDocLayout(ctx, page, "https://example.com/export", 2).Layout)

	page = &fakePage{exportBody: sideTableHTML, exportStatus: 200}
	assert.Equal(t, schemas.LayoutSide, FetchDocLayout(ctx, page, "https://example.com/export", 2).Layout)
}
