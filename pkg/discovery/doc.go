// Package discovery finds the posts and images of an account.
//
// Discovery drives a Page from an external Provider (a browser, or the
// static HTML provider in internal/staticpage) through an ordered Chain of
// strategies:
//
//  1. LinkStrategy scrolls the profile grid collecting post links until
//     enough are known or the link deadline passes, then opens each post.
//  2. APIStrategy, when no links were found, requests the profile metadata
//     endpoint with the session cookie and reads posts straight from it.
//  3. ClickThroughStrategy, when the API also came up empty, opens the first
//     grid post and pages forward through the overlay.
//
// The chain stops at the first strategy that finds posts. Before any strategy
// runs, the page text is checked for private or missing account phrases;
// when every strategy comes up empty, a screenshot and the page HTML are
// written for inspection.
//
// Posts are streamed to a Sink as they are discovered so downloads can begin
// before discovery finishes and can stop it early.
package discovery
