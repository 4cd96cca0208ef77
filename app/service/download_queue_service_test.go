package service

import (
	"bili-downloader/app/bilibili"
	"bili-downloader/app/logger"
	"bili-downloader/app/model"
	"errors"
	"testing"
	"time"
)

func TestDownloadQueueLifecycle(t *testing.T) {
	queue := NewDownloadQueueService(newTestDB(t, testConfig("http://unused")), logger.NewNop())

	first := newTask("aaaa", bilibili.StatusRunning)
	first.FilePathList = []string{"/dl/a.mp4", "/dl/a.png", "/dl/a-video.m4s", "/dl/a-audio.m4s", ""}
	first.DownloadURL = bilibili.DownloadURL{Video: "v", Audio: "a"}
	second := newTask("bbbb", bilibili.StatusQueued)
	second.CreatedAt = first.CreatedAt.Add(time.Second)

	if err := queue.Save([]bilibili.DownloadTask{first, second}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	running, err := queue.RunningCount()
	if err != nil || running != 1 {
		t.Fatalf("RunningCount() = %d, %v, expected 1", running, err)
	}

	all, err := queue.List(0)
	if err != nil {
		t.Fatalf("List(0) error = %v", err)
	}
	if len(all) != 2 || all[0].TaskID != "aaaa" || all[1].TaskID != "bbbb" {
		t.Errorf("List(0) = %+v", all)
	}
	queued, _ := queue.List(model.TaskStatusQueued)
	if len(queued) != 1 || queued[0].TaskID != "bbbb" {
		t.Errorf("List(queued) = %+v", queued)
	}

	task, err := queue.Get("aaaa")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if task.DownloadURL.Video != "v" || len(task.FilePathList) != 5 || task.Title != "标题-aaaa" {
		t.Errorf("Get() = %+v", task)
	}

	if err := queue.UpdateProgress("aaaa", model.TaskStatusRunning, 40); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	task, _ = queue.Get("aaaa")
	if task.Progress != 40 {
		t.Errorf("Progress = %d, expected 40", task.Progress)
	}

	if err := queue.Cancel("aaaa"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if _, err := queue.Get("aaaa"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Get() after cancel error = %v, expected ErrTaskNotFound", err)
	}
	if err := queue.Cancel("aaaa"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Cancel() twice error = %v, expected ErrTaskNotFound", err)
	}
	if err := queue.UpdateProgress("missing", 1, 1); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("UpdateProgress(missing) error = %v, expected ErrTaskNotFound", err)
	}

	removed, err := queue.Clear()
	if err != nil || removed != 1 {
		t.Errorf("Clear() = %d, %v, expected 1", removed, err)
	}
}

func TestDownloadQueueSaveIsAtomic(t *testing.T) {
	queue := NewDownloadQueueService(newTestDB(t, testConfig("http://unused")), logger.NewNop())

	if err := queue.Save([]bilibili.DownloadTask{newTask("dup", bilibili.StatusQueued)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// 第二批中有重复 id，整批都不应写入
	err := queue.Save([]bilibili.DownloadTask{
		newTask("fresh", bilibili.StatusQueued),
		newTask("dup", bilibili.StatusQueued),
	})
	if err == nil {
		t.Fatal("Save() error = nil, expected unique constraint failure")
	}
	all, _ := queue.List(0)
	if len(all) != 1 {
		t.Errorf("List(0) returned %d tasks, expected 1", len(all))
	}
}
