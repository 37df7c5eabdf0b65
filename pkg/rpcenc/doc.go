// Package rpcenc implements the SOAP RPC-encoding value model: typed
// scalar elements, structs, id/href object references, and one- and
// multi-dimensional arrays in both dense and sparse forms.
//
// All mutable state lives in a per-call Encoder or Decoder; nothing is
// process-global, so independent calls may run concurrently. The shared
// leaf-codec cache is safe to reuse across calls once populated.
//
// Decoding resolves href references through an id index plus a deferred
// slot list rather than by recursing into targets, which makes forward
// references and reference cycles terminate. Simplify strips the
// protocol bookkeeping from a decoded tree; it is idempotent and guards
// against cycles with an identity-based visited set.
package rpcenc
