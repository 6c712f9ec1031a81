package browser

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tagAttribute is the data attribute resolveScript stamps onto matched
// nodes. Handles address elements through it, so a handle stays valid
// while the page shuffles siblings around the node. The name is mirrored
// literally inside resolveScript.
const tagAttribute = "data-wayfarer-id"

// resolveSpec is the argument handed to resolveScript. It travels as JSON,
// so candidate values never need manual escaping on the Go side.
type resolveSpec struct {
	Strategy  string `json:"strategy"`
	Value     string `json:"value"`
	Qualifier string `json:"qualifier"`
	Visible   bool   `json:"visible"`
	Enabled   bool   `json:"enabled"`
	Limit     int    `json:"limit"`
	TagPrefix string `json:"tagPrefix"`
}

// resolvedNode is one match returned by resolveScript.
type resolvedNode struct {
	Tag        string `json:"tag"`
	Descriptor string `json:"descriptor"`
}

// resolveScript finds, filters, and tags elements in a single round trip.
// It mirrors the locator strategies: testid, role (including the implicit
// HTML roles the target site leans on), css, and text. Matches come back
// in document order as {tag, descriptor} pairs.
const resolveScript = `(function(spec) {
	var IMPLICIT_ROLES = {
		button: 'button, input[type="button"], input[type="submit"]',
		link: 'a[href]',
		option: 'option',
		textbox: 'input:not([type]), input[type="text"], input[type="search"], textarea'
	};
	function isVisible(el) {
		var r = el.getBoundingClientRect();
		if (r.width <= 0 || r.height <= 0) { return false; }
		var cs = window.getComputedStyle(el);
		return cs.display !== 'none' && cs.visibility !== 'hidden' && cs.opacity !== '0';
	}
	function isEnabled(el) {
		if (el.disabled === true) { return false; }
		return el.getAttribute('aria-disabled') !== 'true';
	}
	function accessibleName(el) {
		return (el.getAttribute('aria-label') || el.innerText || el.textContent || '').trim();
	}
	function describe(el) {
		var d = el.tagName.toLowerCase();
		if (el.id) { d += '#' + el.id; }
		var tid = el.getAttribute('data-testid');
		if (tid) { d += '[data-testid=' + tid + ']'; }
		var text = accessibleName(el).replace(/\s+/g, ' ');
		if (text) { d += ' "' + text.slice(0, 40) + '"'; }
		return d;
	}
	function gather() {
		var sel;
		switch (spec.strategy) {
		case 'testid':
			sel = '[data-testid=' + JSON.stringify(spec.value) + ']';
			break;
		case 'css':
			sel = spec.value;
			break;
		case 'role':
			sel = '[role=' + JSON.stringify(spec.value) + ']';
			if (IMPLICIT_ROLES[spec.value]) { sel += ', ' + IMPLICIT_ROLES[spec.value]; }
			break;
		case 'text':
			sel = spec.qualifier || '*';
			break;
		default:
			return [];
		}
		try {
			return Array.prototype.slice.call(document.querySelectorAll(sel));
		} catch (e) {
			return [];
		}
	}
	function keeps(el) {
		if (spec.visible && !isVisible(el)) { return false; }
		if (spec.enabled && !isEnabled(el)) { return false; }
		if (spec.strategy === 'role' && spec.qualifier) {
			if (accessibleName(el).toLowerCase().indexOf(spec.qualifier.toLowerCase()) === -1) { return false; }
		}
		if (spec.strategy === 'text') {
			var own = (el.innerText || el.textContent || '').trim().toLowerCase();
			if (own !== spec.value.trim().toLowerCase()) { return false; }
		}
		return true;
	}
	var nodes = gather();
	var out = [];
	for (var i = 0; i < nodes.length; i++) {
		if (!keeps(nodes[i])) { continue; }
		var tag = spec.tagPrefix + '-' + out.length;
		nodes[i].setAttribute('data-wayfarer-id', tag);
		out.push({ tag: tag, descriptor: describe(nodes[i]) });
		if (spec.limit > 0 && out.length >= spec.limit) { break; }
	}
	return out;
})(%s)`

// existsScript answers a bare existence probe. Invalid selectors count as
// absent rather than failing the poll.
const existsScript = `(function(sel) {
	try { return !!document.querySelector(sel); }
	catch (e) { return false; }
})(%s)`

// readTextScript returns the node's rendered text, or null when the tagged
// node has left the DOM so the caller can tell "gone" from "empty".
const readTextScript = `(function(sel) {
	var el = document.querySelector(sel);
	if (!el) { return null; }
	return el.innerText || el.textContent || '';
})(%s)`

// readAttributeScript returns the named attribute, null when the tagged
// node has left the DOM, empty string when the attribute is absent.
const readAttributeScript = `(function(sel, name) {
	var el = document.querySelector(sel);
	if (!el) { return null; }
	return el.getAttribute(name) || '';
})(%s, %s)`

// boundingBoxScript measures the node's viewport box, null when gone.
const boundingBoxScript = `(function(sel) {
	var el = document.querySelector(sel);
	if (!el) { return null; }
	var r = el.getBoundingClientRect();
	return { x: r.x, y: r.y, width: r.width, height: r.height };
})(%s)`

// focusScript centers and focuses the node and clears any prior value so
// typed text lands in an empty field. Returns false when the node is gone.
const focusScript = `(function(sel) {
	var el = document.querySelector(sel);
	if (!el) { return false; }
	el.scrollIntoView({ block: 'center', inline: 'center' });
	el.focus();
	if ('value' in el && el.value !== '') {
		el.value = '';
		el.dispatchEvent(new Event('input', { bubbles: true }));
	}
	return true;
})(%s)`

// buildResolveScript binds a spec into resolveScript.
func buildResolveScript(spec resolveSpec) (string, error) {
	arg, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("encoding resolve spec: %w", err)
	}
	return fmt.Sprintf(resolveScript, arg), nil
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
