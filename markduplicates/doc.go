/*Package markduplicates implements a single-pass, streaming
  duplicate-marking engine for coordinate-sorted SAM/BAM alignment
  streams.

  Unlike a batch implementation that buffers a whole shard, or the
  whole input, before deciding anything, this engine never holds more
  records in memory than the sweep window requires: as the input's
  coordinate advances, any table entry whose position has been passed
  can no longer collide with anything still to come, so it is drained
  immediately and handed to the non-duplicate path. Memory stays
  proportional to coverage times the maximum insert size, not to the
  size of the input.

  Duplicate Marking Concepts:

  At the conceptual level, this engine considers two reads A and B as
  duplicates (isDuplicate(A, B)) if their:
    1) library
    2) reference
    3) unclipped 5' position
    4) read direction (orientation)
  are ALL identical. The unclipped 5' position accounts for soft
  clipping: for a forward-strand read it is the leftmost aligned base
  minus any leading soft-clip length; for a reverse-strand read it is
  the rightmost aligned base plus any trailing soft-clip length. Two
  reads whose physical fragment started at the same place but were
  clipped differently during alignment still collide.

  Two pairs P1 and P2 are considered duplicates of each other, if
  isDuplicate(P1.leftRead, P2.leftRead) and isDuplicate(P1.rightRead,
  P2.rightRead).  Left is the mate that appears first in the
  coordinate-sorted input and right is the mate that appears later;
  which mate is read 1 plays no part.

  Mapped pairs vs. Mapped-Unmapped pairs: For some read pairs, both
  reads will be mapped (mapped pairs).  For other read pairs, only one
  of the reads will be mapped (mapped-unmapped pairs).  A mapped pair
  can be a duplicate of another mapped pair, but a mapped pair P1 may
  NOT be a duplicate of a mapped-unmapped pair P2 because one read of
  P2 will have no alignment position, and thus cannot be equal to one
  of the mapped reads of P1.

  The mapped read of a mapped-unmapped pair (a "mate-unmapped read")
  goes through the fragment table together with reads from
  single-ended libraries, and is compared only with those reads. It is
  not compared with the reads of mapped pairs, which go through the
  pending-mate and paired tables instead. So in this example P2.left
  is not marked as a duplicate of P1.left:

    P1: left(chr1, 1020, F) right(chr1, 1040, R)
    P2: left(chr1, 1020, F) right(chr1, 0, ?)

    P1 is not a duplicate of P2, and P2.left is not compared with P1.left.

  After identifying a group of duplicates, this engine selects a
  primary (survivor) for the group. Among mapped pairs, the primary is
  the pair with the highest score, computed as the sum over both reads
  of base qualities at or above a configurable threshold. Ties are
  broken by the smaller input ordinal of the first-seen mate, so the
  outcome never depends on hash iteration order.

  In the fragment table, reads that carry the paired flag
  (mate-unmapped reads, and cross-chromosome reads under --oneChrom)
  are given priority over reads from single-ended libraries: such a
  read replaces a stored single-ended read regardless of score, even
  when the single-ended read scores higher. Among single-ended reads
  the higher score wins and a tie keeps the earlier read. Once a read
  carrying the paired flag is stored, it is kept against every later
  read with the same fingerprint, whatever that read's score.

  After identifying the primary and the duplicates, this engine can be
  configured to mark each loser with the duplicate flag 0x400, or to
  remove each loser from the output entirely.

  Implementation:

  This is a two-pass, single-threaded, streaming algorithm rather than
  a sharded batch one. Pass 1 reads the input once, in coordinate
  order, and maintains three in-flight tables:

    - the fragment table, one best-so-far candidate per single-ended
      fingerprint;
    - the pending-mate table, records that have arrived before their
      mate and are waiting for it; and
    - the paired table, one best-so-far candidate per paired
      fingerprint, populated once both mates of a pair have arrived.

  As the input's reference/position advances past a table entry's
  position, that entry can never collide with a future record, so the
  sweep controller removes it from its table and delivers it to the
  non-duplicate path. This bounds memory by the sweep window - the
  largest distance between a fragment and the furthest-arriving mate
  in the stream - rather than by the size of the whole input. At EOF
  the sweep runs once more with a sentinel position past everything,
  draining all three tables; by invariant, they end empty.

  Matching up pairs:

  A read's mate is found via the pending-mate table, which is keyed by
  the packed (reference, position) the *mate* is expected at. When a
  paired, mapped record arrives, it either finds and removes its
  already-parked mate from that table (pairing resolved, both records
  now go through the paired table) or parks itself there to await its
  mate's arrival later in the stream. Because the input is
  coordinate-sorted, a record only ever needs to park under its mate's
  position, never search backward.

  Pass 1 assigns every input record, unmapped ones included, a 0-based
  input ordinal; every loser's ordinal is appended to an index list,
  which is sorted once pass 1 reaches EOF. Pass 2 re-reads the same
  input and walks that sorted list in lockstep, so duplicate marking
  never needs to buffer output or touch the input out of order.

  Output ordering:

  Because pass 2 re-reads the original, unmodified input and writes
  each record as it is read, output order always matches input order
  exactly, with or without --rmDups. No output buffering or
  reordering step exists anywhere in the engine.
*/
package markduplicates
