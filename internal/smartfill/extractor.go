// File: internal/smartfill/extractor.go
// DOM field extraction: finds every visible editable region on the live page,
// tags it with a fresh identifier attribute so it can be re-located later,
// and associates it with the nearest descriptive text.
package smartfill

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

// editableFieldSelector matches the editable-surface predicate: text areas,
// content-editable containers, plain text inputs, ARIA textbox roles and
// rich-text editor surfaces, minus search controls and aria-hidden subtrees.
const editableFieldSelector = `textarea:not([aria-label*="Search" i]):not([placeholder*="Search" i]):not([aria-hidden="true"]), ` +
	`div[contenteditable="true"]:not([aria-hidden="true"]), ` +
	`input[type="text"]:not([aria-label*="Search" i]):not([placeholder*="Search" i]):not([name*="search" i]):not([aria-hidden="true"]), ` +
	`[role="textbox"]:not([aria-label*="Search" i]):not([placeholder*="Search" i]):not([aria-hidden="true"]), ` +
	`.ql-editor`

// extractFieldsJS scans the document for visible editable fields in vertical
// order, tags each with the supplied identifier attribute, and resolves the
// nearby prompt text with a layered heuristic: accessible label/placeholder
// first, then the closest text block above inside the structural ancestor,
// then up to three preceding siblings, then a synthetic label.
const extractFieldsJS = `(function(selector, idAttr, passId) {
	const clean = (t) => (t || '').replace(/\s+/g, ' ').trim();
	const ignore = /(turn in|add class comment|private comment|stream|search|submit)/i;
	const isVisible = (el) => {
		const r = el.getBoundingClientRect();
		const s = getComputedStyle(el);
		if (s.display === 'none' || s.visibility === 'hidden' || Number(s.opacity || 1) === 0) return false;
		return r.width > 6 && r.height > 6 && r.bottom > 0 && r.right > 0;
	};
	const results = [];
	const nodes = Array.from(document.querySelectorAll(selector));
	let idx = 0;
	for (const el of nodes) {
		if (!isVisible(el)) continue;
		if (el.closest('[aria-hidden="true"]')) continue;
		const ariaLabel = clean(el.getAttribute('aria-label'));
		const placeholder = clean(el.getAttribute('placeholder'));
		if (ignore.test(ariaLabel + ' ' + placeholder)) continue;

		idx += 1;
		const id = passId + '-' + idx;
		el.setAttribute(idAttr, id);

		const rect = el.getBoundingClientRect();
		let nearText = ariaLabel || placeholder || '';
		if (!nearText) {
			const container = el.closest('form, article, section, li, div[role="listitem"], [role="main"]') || el.parentElement;
			if (container) {
				const cands = container.querySelectorAll('h1,h2,h3,h4,label,p,span,div[role="heading"],legend');
				let best = null;
				let bestDist = 9999;
				for (const c of cands) {
					if (c === el || c.contains(el) || el.contains(c)) continue;
					const cR = c.getBoundingClientRect();
					if (cR.bottom > rect.top + 18) continue;
					if (Math.abs(cR.left - rect.left) > 700) continue;
					const dist = Math.max(0, rect.top - cR.bottom);
					if (dist < bestDist) {
						bestDist = dist;
						best = clean(c.textContent || c.innerText);
					}
				}
				if (best && best.length >= 3 && best.length <= 300) nearText = best;
			}
		}
		if (!nearText) {
			let prev = el.previousElementSibling;
			let hops = 0;
			while (prev && hops < 3) {
				const t = clean(prev.textContent || prev.innerText);
				if (t && t.length >= 3 && t.length <= 300 && !ignore.test(t)) { nearText = t; break; }
				prev = prev.previousElementSibling;
				hops++;
			}
		}
		results.push({
			field_id: id,
			tag: (el.tagName || '').toLowerCase(),
			role: el.getAttribute('role') || '',
			input_type: el.getAttribute('type') || '',
			nearby_text: nearText || ('Field ' + idx),
			y: rect.top,
		});
	}
	results.sort((a, b) => a.y - b.y);
	return results;
})(%s, %s, %s)`

// ExtractFields returns every visible editable field on the page in document
// (vertical) order. As a side effect each matched element is tagged with a
// fresh unique identifier attribute; the returned DetectedField indexes are
// assigned after the vertical sort, so fills proceed top to bottom no matter
// what order the raw DOM query produced.
func ExtractFields(ctx context.Context, page Page) ([]schemas.DetectedField, error) {
	passID := "sf-" + uuid.NewString()
	script := fmt.Sprintf(extractFieldsJS,
		jsQuote(editableFieldSelector), jsQuote(schemas.FieldIDAttribute), jsQuote(passID))

	var raw []schemas.DetectedField
	if err := page.Evaluate(ctx, script, &raw); err != nil {
		return nil, fmt.Errorf("field extraction failed: %w", err)
	}

	for i := range raw {
		raw[i].Index = i
		if raw[i].NearbyText == "" {
			raw[i].NearbyText = fmt.Sprintf("Field %d", i+1)
		}
	}
	return raw, nil
}
