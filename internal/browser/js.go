package browser

import (
	"fmt"
	"strconv"
)

// jsPrelude defines the shared element helpers each snippet needs. Every
// snippet is a self-contained IIFE so evaluation never depends on page state
// surviving between steps.
const jsPrelude = `
	function findAll(expr, isXPath) {
		if (isXPath) {
			var res = document.evaluate(expr, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			var out = [];
			for (var i = 0; i < res.snapshotLength; i++) out.push(res.snapshotItem(i));
			return out;
		}
		return Array.prototype.slice.call(document.querySelectorAll(expr));
	}
	function isVisible(el) {
		if (!el || !el.getClientRects || el.getClientRects().length === 0) return false;
		var s = window.getComputedStyle(el);
		return s.visibility !== 'hidden' && s.display !== 'none';
	}
	function firstVisibleOrFirst(els) {
		for (var i = 0; i < els.length; i++) {
			if (isVisible(els[i])) return els[i];
		}
		return els[0];
	}
	function findNativeControl(el) {
		if (el.tagName === 'SELECT') return el;
		var control = null;
		if (el.tagName === 'LABEL') {
			if (el.htmlFor) control = document.getElementById(el.htmlFor);
			if (!control) control = el.querySelector('select');
		}
		if (!control && el.id) {
			control = document.querySelector('select[aria-labelledby~="' + el.id + '"]');
		}
		if (!control) {
			var scope = el;
			for (var d = 0; d < 4 && scope; d++, scope = scope.parentElement) {
				var sel = scope.querySelector && scope.querySelector('select');
				if (sel) { control = sel; break; }
			}
		}
		if (control && control.tagName === 'SELECT') return control;
		return null;
	}
`

func jsString(s string) string {
	return strconv.Quote(s)
}

func jsBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// jsProbe counts matches and how many of them are visible.
func jsProbe(loc locator) string {
	return fmt.Sprintf(`(function() {
		%s
		var els = findAll(%s, %s);
		var visible = 0;
		for (var i = 0; i < els.length; i++) if (isVisible(els[i])) visible++;
		return {total: els.length, visible: visible};
	})()`, jsPrelude, jsString(loc.expr), jsBool(loc.xpath))
}

// jsClickFirstVisible clicks the first visible match among all matches.
func jsClickFirstVisible(loc locator) string {
	return fmt.Sprintf(`(function() {
		%s
		var els = findAll(%s, %s);
		for (var i = 0; i < els.length; i++) {
			if (isVisible(els[i])) {
				els[i].scrollIntoView({block: 'center'});
				els[i].click();
				return {total: els.length, clicked: true};
			}
		}
		return {total: els.length, clicked: false};
	})()`, jsPrelude, jsString(loc.expr), jsBool(loc.xpath))
}

// jsClickByRegex clicks the first visible element whose own text matches a
// case-insensitive, whitespace-tolerant pattern built from the name.
func jsClickByRegex(name string) string {
	return fmt.Sprintf(`(function() {
		%s
		var escaped = %s.replace(/[.*+?^${}()|[\]\\]/g, '\\$&');
		var re = new RegExp(escaped.replace(/\s+/g, '\\s*'), 'i');
		var els = document.querySelectorAll('a, button, [role="button"], span, div, li');
		for (var i = 0; i < els.length; i++) {
			var el = els[i];
			var own = '';
			for (var c = el.firstChild; c; c = c.nextSibling) {
				if (c.nodeType === 3) own += c.textContent;
			}
			if (re.test(own.trim()) && isVisible(el)) {
				el.scrollIntoView({block: 'center'});
				el.click();
				return true;
			}
		}
		return false;
	})()`, jsPrelude, jsString(name))
}

// jsClickHasText clicks the first visible anchor or button whose text content
// contains the name.
func jsClickHasText(name string) string {
	return fmt.Sprintf(`(function() {
		%s
		var els = document.querySelectorAll('a, button');
		for (var i = 0; i < els.length; i++) {
			if (els[i].textContent.indexOf(%s) !== -1 && isVisible(els[i])) {
				els[i].scrollIntoView({block: 'center'});
				els[i].click();
				return true;
			}
		}
		return false;
	})()`, jsPrelude, jsString(name))
}

// jsTextContains reports whether any match's text contains the wanted string,
// surfacing the actual text of the first match for the assertion error.
func jsTextContains(loc locator, text string) string {
	return fmt.Sprintf(`(function() {
		%s
		var els = findAll(%s, %s);
		if (els.length === 0) return {found: false, actual: ''};
		for (var i = 0; i < els.length; i++) {
			if (els[i].textContent.indexOf(%s) !== -1) return {found: true, actual: ''};
		}
		return {found: false, actual: els[0].textContent.slice(0, 200)};
	})()`, jsPrelude, jsString(loc.expr), jsBool(loc.xpath), jsString(text))
}

// jsListNativeOptions discovers the native <select> behind the resolved
// element (itself, label association, aria-labelledby, or DOM ancestry) and
// returns its options; which option to pick is decided on the Go side.
// Status: "ok", "no-control", or "no-element".
func jsListNativeOptions(loc locator) string {
	return fmt.Sprintf(`(function() {
		%s
		var els = findAll(%s, %s);
		if (els.length === 0) return {status: "no-element", options: []};
		var control = findNativeControl(firstVisibleOrFirst(els));
		if (!control) return {status: "no-control", options: []};
		var out = [];
		for (var i = 0; i < control.options.length; i++) {
			var o = control.options[i];
			out.push({label: o.label, text: o.text, value: o.value});
		}
		return {status: "ok", options: out};
	})()`, jsPrelude, jsString(loc.expr), jsBool(loc.xpath))
}

// jsApplyNativeOption selects the option at index on the discovered native
// control, setting it directly and synthesizing input/change events.
func jsApplyNativeOption(loc locator, index int) string {
	return fmt.Sprintf(`(function() {
		%s
		var els = findAll(%s, %s);
		if (els.length === 0) return false;
		var control = findNativeControl(firstVisibleOrFirst(els));
		if (!control) return false;
		var o = control.options[%d];
		if (!o) return false;
		o.selected = true;
		control.value = o.value;
		control.dispatchEvent(new Event('input', {bubbles: true}));
		control.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, jsPrelude, jsString(loc.expr), jsBool(loc.xpath), index)
}

// jsPickSyntheticOption searches currently visible option-like elements of an
// open synthetic dropdown for the wanted text and clicks the first hit.
func jsPickSyntheticOption(value string) string {
	return fmt.Sprintf(`(function() {
		%s
		var want = %s;
		var els = document.querySelectorAll('[role="option"], li, [class*="option" i]');
		for (var i = 0; i < els.length; i++) {
			var el = els[i];
			if (!isVisible(el)) continue;
			var text = el.textContent.trim();
			if (text === want || text.indexOf(want) !== -1) {
				el.scrollIntoView({block: 'center'});
				el.click();
				return true;
			}
		}
		return false;
	})()`, jsPrelude, jsString(value))
}

// jsScrollOptionContainer scrolls the open listbox container by one viewport
// increment, for virtualized dropdowns that render options lazily. Returns
// false once the container cannot scroll further (or none is open).
func jsScrollOptionContainer() string {
	return fmt.Sprintf(`(function() {
		%s
		var candidates = document.querySelectorAll('[role="listbox"], [class*="menu" i], [class*="dropdown" i], [class*="options" i], ul');
		for (var i = 0; i < candidates.length; i++) {
			var c = candidates[i];
			if (!isVisible(c) || c.scrollHeight <= c.clientHeight) continue;
			var before = c.scrollTop;
			c.scrollTop = before + c.clientHeight;
			c.dispatchEvent(new Event('scroll', {bubbles: true}));
			if (c.scrollTop > before) return true;
		}
		return false;
	})()`, jsPrelude)
}

// jsDismissCookieBanner clicks the first visible "Accept all"/"Reject all"
// button. Absence of a banner is not an error.
func jsDismissCookieBanner() string {
	return fmt.Sprintf(`(function() {
		%s
		var labels = ["Accept all", "Reject all"];
		var els = document.querySelectorAll('button, [role="button"], input[type="submit"], input[type="button"]');
		for (var l = 0; l < labels.length; l++) {
			for (var i = 0; i < els.length; i++) {
				var el = els[i];
				var text = (el.textContent || el.value || '').trim();
				if (text === labels[l] && isVisible(el)) {
					el.click();
					return labels[l];
				}
			}
		}
		return "";
	})()`, jsPrelude)
}
