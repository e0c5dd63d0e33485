// Package ownerfile reads and rewrites the gzip-compressed NBT document the
// host keeps for every owner while they are disconnected.
//
// Only the item lists and the book-related item components are interpreted;
// every other tag is carried through untouched as raw NBT so a rewrite never
// loses data the host owns.
package ownerfile
