package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var downloadFlags struct {
	pages   []int
	quality int
	cover   bool
}

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "为选中的分P生成下载任务并加入队列",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newCLIApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		meta, err := app.resolve.Resolve(ctx, args[0])
		if err != nil {
			return err
		}

		pages := downloadFlags.pages
		if len(pages) == 0 {
			pages = make([]int, 0, len(meta.Pages))
			for _, p := range meta.Pages {
				pages = append(pages, p.Index)
			}
		}

		quality := downloadFlags.quality
		if quality == 0 && len(meta.QualityOptions) > 0 {
			quality = meta.QualityOptions[0].Value
		}

		tasks, err := app.resolve.Plan(ctx, meta, pages, quality)
		if err != nil {
			return err
		}
		admitted, err := app.resolve.Enqueue(ctx, tasks)
		if err != nil {
			return err
		}
		if downloadFlags.cover {
			app.resolve.SaveCovers(ctx, admitted)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "生成任务 %d 个，接收 %d 个\n", len(tasks), len(admitted))
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\t状态\t标题\t目录")
		for _, task := range admitted {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", task.TaskID, task.Status, task.Title, task.FileDir)
		}
		return w.Flush()
	},
}

func init() {
	downloadCmd.Flags().IntSliceVarP(&downloadFlags.pages, "pages", "p", nil, "要下载的分P页码，默认全部")
	downloadCmd.Flags().IntVarP(&downloadFlags.quality, "quality", "q", 0, "清晰度 id，默认可用的最高清晰度")
	downloadCmd.Flags().BoolVar(&downloadFlags.cover, "cover", false, "同时保存封面缩略图")
	rootCmd.AddCommand(downloadCmd)
}
