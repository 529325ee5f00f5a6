package vulkan

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/corporation/hal"
)

func (d *Device) CreateFence(signaled bool) (hal.Fence, error) {
	var flags vk.FenceCreateFlagBits
	if signaled {
		flags = vk.FenceCreateSignaledBit
	}
	var fence vk.Fence
	ret := vk.CreateFence(d.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(flags),
	}, nil, &fence)
	if err := wrap(ret, "create fence"); err != nil {
		return 0, err
	}
	return hal.Fence(d.fences.add(fence)), nil
}

func (d *Device) WaitForFence(f hal.Fence, timeout uint64) error {
	fence, ok := d.fences.get(hal.Handle(f))
	if !ok {
		return unknown("fence", hal.Handle(f))
	}
	return wrap(vk.WaitForFences(d.device, 1, []vk.Fence{fence}, vk.True, timeout), "wait for fence")
}

func (d *Device) ResetFence(f hal.Fence) error {
	fence, ok := d.fences.get(hal.Handle(f))
	if !ok {
		return unknown("fence", hal.Handle(f))
	}
	return wrap(vk.ResetFences(d.device, 1, []vk.Fence{fence}), "reset fence")
}

func (d *Device) DestroyFence(f hal.Fence) {
	fence, ok := d.fences.remove(hal.Handle(f))
	if !ok {
		d.stale("fence", hal.Handle(f))
		return
	}
	vk.DestroyFence(d.device, fence, nil)
}

func (d *Device) CreateSemaphore() (hal.Semaphore, error) {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(d.device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	if err := wrap(ret, "create semaphore"); err != nil {
		return 0, err
	}
	return hal.Semaphore(d.semaphores.add(sem)), nil
}

func (d *Device) DestroySemaphore(s hal.Semaphore) {
	sem, ok := d.semaphores.remove(hal.Handle(s))
	if !ok {
		d.stale("semaphore", hal.Handle(s))
		return
	}
	vk.DestroySemaphore(d.device, sem, nil)
}

// Queue is the single queue of a Device.
type Queue struct {
	d     *Device
	queue vk.Queue
}

func (q *Queue) semaphores(list []hal.Semaphore) ([]vk.Semaphore, error) {
	out := make([]vk.Semaphore, len(list))
	for i, s := range list {
		sem, ok := q.d.semaphores.get(hal.Handle(s))
		if !ok {
			return nil, unknown("semaphore", hal.Handle(s))
		}
		out[i] = sem
	}
	return out, nil
}

// Submit submits one batch. signal may be the null fence.
func (q *Queue) Submit(sub hal.Submission, signal hal.Fence) error {
	cbs := make([]vk.CommandBuffer, len(sub.CommandBuffers))
	for i, h := range sub.CommandBuffers {
		cb, ok := q.d.cmdBuffers.get(hal.Handle(h))
		if !ok {
			return unknown("command buffer", hal.Handle(h))
		}
		cbs[i] = cb.cb
	}
	wait, err := q.semaphores(sub.WaitSemaphores)
	if err != nil {
		return err
	}
	sig, err := q.semaphores(sub.SignalSemaphores)
	if err != nil {
		return err
	}
	stages := make([]vk.PipelineStageFlags, len(wait))
	for i := range stages {
		// Waits without an explicit stage block at color attachment output.
		stages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
		if i < len(sub.WaitStages) {
			stages[i] = vkStages(sub.WaitStages[i])
		}
	}
	var fence vk.Fence
	if signal != 0 {
		f, ok := q.d.fences.get(hal.Handle(signal))
		if !ok {
			return unknown("fence", hal.Handle(signal))
		}
		fence = f
	}

	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(cbs)),
		PCommandBuffers:    cbs,
	}
	if len(wait) > 0 {
		info.WaitSemaphoreCount = uint32(len(wait))
		info.PWaitSemaphores = wait
		info.PWaitDstStageMask = stages
	}
	if len(sig) > 0 {
		info.SignalSemaphoreCount = uint32(len(sig))
		info.PSignalSemaphores = sig
	}
	return wrap(vk.QueueSubmit(q.queue, 1, []vk.SubmitInfo{info}, fence), "queue submit")
}

func (q *Queue) Present(h hal.Swapchain, index uint32, wait hal.Semaphore) error {
	sc, ok := q.d.swapchains.get(hal.Handle(h))
	if !ok {
		return unknown("swapchain", hal.Handle(h))
	}
	info := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{sc.sc},
		PImageIndices:  []uint32{index},
	}
	if wait != 0 {
		sems, err := q.semaphores([]hal.Semaphore{wait})
		if err != nil {
			return err
		}
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = sems
	}
	return wrap(vk.QueuePresent(q.queue, &info), "queue present")
}
