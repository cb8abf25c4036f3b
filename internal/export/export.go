// Package export writes snapshot-derived datasets as parquet files for
// offline analysis.
package export

import (
	"fmt"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/apetrov-dev/piutop/internal/model"
)

type resultRow struct {
	ResultID      int64    `parquet:"name=result_id, type=INT64"`
	SharedChartID string   `parquet:"name=shared_chart_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Song          string   `parquet:"name=song, type=BYTE_ARRAY, convertedtype=UTF8"`
	ChartLabel    string   `parquet:"name=chart_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	ChartLevel    int32    `parquet:"name=chart_level, type=INT32"`
	PlayerID      int32    `parquet:"name=player_id, type=INT32"`
	Nickname      string   `parquet:"name=nickname, type=BYTE_ARRAY, convertedtype=UTF8"`
	Score         int64    `parquet:"name=score, type=INT64"`
	ScoreRaw      int64    `parquet:"name=score_raw, type=INT64"`
	Grade         string   `parquet:"name=grade, type=BYTE_ARRAY, convertedtype=UTF8"`
	Accuracy      *float64 `parquet:"name=accuracy, type=DOUBLE"`
	IsRank        bool     `parquet:"name=is_rank, type=BOOLEAN"`
	IsCurrentBest bool     `parquet:"name=is_current_best, type=BOOLEAN"`
	DateUnix      int64    `parquet:"name=date_unix, type=INT64"`
}

type battleRow struct {
	SharedChartID  string `parquet:"name=shared_chart_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Song           string `parquet:"name=song, type=BYTE_ARRAY, convertedtype=UTF8"`
	ChartLevel     int32  `parquet:"name=chart_level, type=INT32"`
	IncomingID     int32  `parquet:"name=incoming_player_id, type=INT32"`
	Incoming       string `parquet:"name=incoming_nickname, type=BYTE_ARRAY, convertedtype=UTF8"`
	IncomingScore  int64  `parquet:"name=incoming_score, type=INT64"`
	IncumbentID    int32  `parquet:"name=incumbent_player_id, type=INT32"`
	Incumbent      string `parquet:"name=incumbent_nickname, type=BYTE_ARRAY, convertedtype=UTF8"`
	IncumbentScore int64  `parquet:"name=incumbent_score, type=INT64"`
	IsRank         bool   `parquet:"name=is_rank, type=BOOLEAN"`
	DateUnix       int64  `parquet:"name=date_unix, type=INT64"`
}

// Results writes every result (current bests and superseded attempts) across
// all charts, chart by chart in id order.
func Results(path string, charts map[string]*model.ChartAggregate) (int, error) {
	ids := make([]string, 0, len(charts))
	for id := range charts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var rows []resultRow
	for _, id := range ids {
		chart := charts[id]
		for _, res := range chart.Results {
			rows = append(rows, newResultRow(chart, res, true))
		}
		for _, res := range chart.PreviousResults {
			rows = append(rows, newResultRow(chart, res, false))
		}
	}
	return len(rows), writeParquet(path, new(resultRow), func(w *writer.ParquetWriter) error {
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// Battles writes the battle list in the order the rating model consumed it.
func Battles(path string, battles []model.Battle) (int, error) {
	return len(battles), writeParquet(path, new(battleRow), func(w *writer.ParquetWriter) error {
		for _, b := range battles {
			row := battleRow{
				SharedChartID:  b.Chart.SharedChartID,
				Song:           b.Chart.Song,
				ChartLevel:     int32(b.Chart.ChartLevelNum),
				IncomingID:     int32(b.Incoming.PlayerID),
				Incoming:       b.Incoming.Nickname,
				IncomingScore:  int64(b.Incoming.Score),
				IncumbentID:    int32(b.Incumbent.PlayerID),
				Incumbent:      b.Incumbent.Nickname,
				IncumbentScore: int64(b.Incumbent.Score),
				IsRank:         b.Incoming.IsRank,
				DateUnix:       b.Incoming.DateObject.Unix(),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func newResultRow(chart *model.ChartAggregate, res *model.Result, currentBest bool) resultRow {
	return resultRow{
		ResultID:      res.ID,
		SharedChartID: chart.SharedChartID,
		Song:          chart.Song,
		ChartLabel:    chart.ChartLabel,
		ChartLevel:    int32(chart.ChartLevelNum),
		PlayerID:      int32(res.PlayerID),
		Nickname:      res.Nickname,
		Score:         int64(res.Score),
		ScoreRaw:      int64(res.ScoreRaw),
		Grade:         string(res.Grade),
		Accuracy:      res.Accuracy,
		IsRank:        res.IsRank,
		IsCurrentBest: currentBest,
		DateUnix:      res.DateObject.Unix(),
	}
}

func writeParquet(path string, schema any, fill func(*writer.ParquetWriter) error) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, schema, 2)
	if err != nil {
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	if err := fill(pw); err != nil {
		return err
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet: %w", err)
	}
	return fw.Close()
}
