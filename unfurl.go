// Package unfurl turns arbitrary links into rich previews. It fetches a
// target page, extracts its title, description, image and favicon through
// an ordered chain of strategies, and decides whether previously stored
// preview metadata is good enough to serve or must be refreshed.
//
// This package contains domain types, pure policy functions and interfaces
// following Ben Johnson's Standard Package Layout. Implementations live in
// subdirectories named after their primary dependency (e.g., goquery/,
// sqlite/, redis/).
package unfurl
