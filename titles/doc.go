// Package titles derives and caches short display titles for conversations.
//
// Titles are generated from the conversation transcript and cached in the
// title store. Listing never waits on generation: conversations without a
// cached title show the placeholder immediately while a background refresh
// fills the cache for the next listing.
package titles
