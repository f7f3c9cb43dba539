// Copyright 2026 Segpool Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package op provides the public API for the segpool operators:
// max-pooling-with-mask, mask-guided max-unpooling, and the smooth-L1
// loss, each exposing the shape-inference, write-policy, and
// backward-dependency contracts an operator framework drives.
//
// Example:
//
//	pool, err := op.NewPoolMask(op.Config{Kernel: [2]int{2, 2}, Stride: [2]int{2, 2}})
//	if err != nil {
//		// configuration rejected before any kernel ran
//	}
//	err = pool.Forward(
//		[]*tensor.RawTensor{data},
//		[]op.WriteReq{op.ReqWrite, op.ReqWrite},
//		[]*tensor.RawTensor{pooled, mask})
package op

import (
	"github.com/segpool-ml/segpool/internal/kernel"
	"github.com/segpool-ml/segpool/internal/op"
	"github.com/segpool-ml/segpool/internal/parallel"
)

// Operator is the contract shared by all segpool operators.
type Operator = op.Operator

// Config collects the construction-time operator parameters.
type Config = op.Config

// WriteReq is the per-slot write policy a caller requests.
type WriteReq = op.WriteReq

// Write policy constants.
const (
	ReqSkip  WriteReq = op.ReqSkip
	ReqWrite WriteReq = op.ReqWrite
	ReqAdd   WriteReq = op.ReqAdd
)

// BackwardDependency names the forward tensors a backward pass reads.
type BackwardDependency = op.BackwardDependency

// ParallelConfig controls the kernels' execution context: one kernel body,
// iterated sequentially or across worker goroutines.
type ParallelConfig = parallel.Config

// DefaultParallel returns the worker configuration sized to the CPU count.
func DefaultParallel() ParallelConfig { return parallel.DefaultConfig() }

// Sequential returns a configuration that runs on the calling goroutine.
func Sequential() ParallelConfig { return parallel.Sequential() }

// Window describes a pooling receptive field: kernel, stride, padding.
type Window = kernel.Window

// Reduction selects the pooling policy.
type Reduction = kernel.Reduction

// Reduction constants.
const (
	MaxReduce Reduction = kernel.MaxReduce
	MinReduce Reduction = kernel.MinReduce
)

// Error types, reported synchronously and never downgraded.
type (
	// ConfigurationError reports unsupported operator parameters.
	ConfigurationError = op.ConfigurationError
	// ShapeMismatchError reports disagreeing shapes during inference.
	ShapeMismatchError = op.ShapeMismatchError
	// ArityError reports a wrong number of tensors at Forward/Backward.
	ArityError = op.ArityError
)

// PoolMask pools a feature map and records the winning coordinates.
type PoolMask = op.PoolMask

// NewPoolMask builds a pooling-with-mask operator.
func NewPoolMask(cfg Config) (*PoolMask, error) { return op.NewPoolMask(cfg) }

// Unpool scatters pooled values back to their recorded coordinates.
type Unpool = op.Unpool

// NewUnpool builds a mask-guided unpooling operator.
func NewUnpool(cfg Config) (*Unpool, error) { return op.NewUnpool(cfg) }

// SmoothL1 is the elementwise robust-regression loss.
type SmoothL1 = op.SmoothL1

// NewSmoothL1 builds a smooth-L1 operator.
func NewSmoothL1(cfg Config) (*SmoothL1, error) { return op.NewSmoothL1(cfg) }

// Slot indices of the PoolMask outputs and Unpool inputs.
const (
	PoolOutData  = op.PoolOutData
	PoolOutMask  = op.PoolOutMask
	UnpoolInData = op.UnpoolInData
	UnpoolInMask = op.UnpoolInMask
)
