package haltest

import (
	"fmt"

	"github.com/andewx/corporation/hal"
)

// Kind names a kind of backend object.
type Kind string

const (
	KindBuffer              Kind = "buffer"
	KindMemory              Kind = "memory"
	KindImage               Kind = "image"
	KindImageView           Kind = "image_view"
	KindSampler             Kind = "sampler"
	KindDescriptorSetLayout Kind = "descriptor_set_layout"
	KindDescriptorPool      Kind = "descriptor_pool"
	KindDescriptorSet       Kind = "descriptor_set"
	KindSwapchain           Kind = "swapchain"
	KindRenderPass          Kind = "render_pass"
	KindFramebuffer         Kind = "framebuffer"
	KindShaderModule        Kind = "shader_module"
	KindPipelineLayout      Kind = "pipeline_layout"
	KindPipeline            Kind = "pipeline"
	KindCommandPool         Kind = "command_pool"
	KindCommandBuffer       Kind = "command_buffer"
	KindFence               Kind = "fence"
	KindSemaphore           Kind = "semaphore"
)

// Record is one destroy call.
type Record struct {
	Kind   Kind
	Handle hal.Handle
}

func (r Record) String() string { return fmt.Sprintf("%s#%d", r.Kind, r.Handle) }

type object struct {
	kind      Kind
	destroyed int
	value     any
}

// Ledger tracks every object created through a test Instance and the
// ordered list of calls that matter for frame scheduling.
type Ledger struct {
	next     hal.Handle
	objects  map[hal.Handle]*object
	created  map[Kind]int
	calls    []string
	destroys []Record
	misuse   []string
}

func newLedger() *Ledger {
	return &Ledger{
		objects: make(map[hal.Handle]*object),
		created: make(map[Kind]int),
	}
}

func (l *Ledger) add(kind Kind, value any) hal.Handle {
	l.next++
	l.objects[l.next] = &object{kind: kind, value: value}
	l.created[kind]++
	return l.next
}

func (l *Ledger) get(kind Kind, h hal.Handle) (any, bool) {
	o, ok := l.objects[h]
	if !ok || o.kind != kind {
		l.misuse = append(l.misuse, fmt.Sprintf("unknown %s#%d", kind, h))
		return nil, false
	}
	if o.destroyed > 0 {
		l.misuse = append(l.misuse, fmt.Sprintf("use of destroyed %s#%d", kind, h))
		return nil, false
	}
	return o.value, true
}

func (l *Ledger) remove(kind Kind, h hal.Handle) {
	o, ok := l.objects[h]
	if !ok || o.kind != kind {
		l.misuse = append(l.misuse, fmt.Sprintf("destroy of unknown %s#%d", kind, h))
		return
	}
	o.destroyed++
	if o.destroyed > 1 {
		l.misuse = append(l.misuse, fmt.Sprintf("double destroy of %s#%d", kind, h))
	}
	l.destroys = append(l.destroys, Record{Kind: kind, Handle: h})
}

func (l *Ledger) call(name string) { l.calls = append(l.calls, name) }

// Created returns how many objects of kind were created.
func (l *Ledger) Created(kind Kind) int { return l.created[kind] }

// Live returns how many objects of kind are created and not destroyed.
func (l *Ledger) Live(kind Kind) int {
	n := 0
	for _, o := range l.objects {
		if o.kind == kind && o.destroyed == 0 {
			n++
		}
	}
	return n
}

// Alive reports whether h was created and not destroyed.
func (l *Ledger) Alive(h hal.Handle) bool {
	o, ok := l.objects[h]
	return ok && o.destroyed == 0
}

// DestroyCount returns how many times h was destroyed.
func (l *Ledger) DestroyCount(h hal.Handle) int {
	if o, ok := l.objects[h]; ok {
		return o.destroyed
	}
	return 0
}

// Destroys returns every destroy call in order.
func (l *Ledger) Destroys() []Record { return l.destroys }

// Calls returns the ordered names of scheduling calls: acquire, submit,
// present, wait_fence, reset_fence, reset_pool, wait_idle and friends.
func (l *Ledger) Calls() []string { return l.calls }

// Count returns how many times the call name was made.
func (l *Ledger) Count(name string) int {
	n := 0
	for _, c := range l.calls {
		if c == name {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (l *Ledger) ResetCalls() { l.calls = nil }

// Misuse returns every invalid use of a handle seen so far: unknown or
// destroyed handles, and double destroys.
func (l *Ledger) Misuse() []string { return l.misuse }
