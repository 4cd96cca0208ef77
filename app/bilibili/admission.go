package bilibili

// Admit 按剩余并发数决定任务状态。
// 前 capacity 个任务立即开始，其余排队；capacity 为负数时不接收任何任务。
func Admit(tasks []DownloadTask, capacity int) []DownloadTask {
	if capacity < 0 {
		return []DownloadTask{}
	}
	admitted := make([]DownloadTask, 0, len(tasks))
	for i, task := range tasks {
		task.Progress = 0
		if i < capacity {
			task.Status = StatusRunning
		} else {
			task.Status = StatusQueued
		}
		admitted = append(admitted, task)
	}
	return admitted
}
