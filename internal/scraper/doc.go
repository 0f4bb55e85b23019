// Package scraper retrieves Meetup listing and event pages.
//
// Pages come from a PageSource. The static source issues a plain HTTP GET and parses
// the returned markup; the render source drives a headless Chrome through chromedp
// for pages that only hydrate client-side. Resolve tries sources in order and stops
// at the first one whose result carries enough signal, so the expensive render tier
// only runs when the static pass comes back thin.
package scraper
