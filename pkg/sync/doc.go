/*
The sync package implements the one-way mirroring algorithm. It makes a
destination directory tree match a source tree, with the source always
winning.

Each pass compares the two trees one directory level at a time:
 1. Both directories are snapshotted. A snapshot maps each child's name to a
    fingerprint: a hash of its contents for files, and a sentinel for
    directories.
 2. Destination entries that don't exist in the source, or that exist with a
    different type, are stale and are removed first.
 3. Source files whose fingerprint differs from the destination's are copied.
    Source directories are always recursed into, since the sentinel says
    nothing about what they contain.

Nothing is remembered between passes. Every pass starts from the real state
of the file system, so a mutation that fails is simply retried by the next
pass.
*/
package sync
