package timer

import "sort"

// slot 时间轮槽位，由 TimeWheel 的锁保护
type slot map[string]*Task // taskID -> task

func (s slot) put(task *Task) {
	s[task.ID] = task
}

func (s slot) remove(taskID string) bool {
	if _, ok := s[taskID]; !ok {
		return false
	}
	delete(s, taskID)
	return true
}

// drain 取出全部任务，按房间号排序后返回
func (s slot) drain() []*Task {
	if len(s) == 0 {
		return nil
	}
	tasks := make([]*Task, 0, len(s))
	for id, task := range s {
		tasks = append(tasks, task)
		delete(s, id)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].RoomCode < tasks[j].RoomCode })
	return tasks
}
