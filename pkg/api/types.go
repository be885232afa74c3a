package api

import "pan123/pkg/types"

// BaseResponse is the envelope shared by every vendor endpoint.
type BaseResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// envelope pairs the base fields with an endpoint-specific data payload.
type envelope[T any] struct {
	BaseResponse
	Data T `json:"data"`
}

type signInData struct {
	Token string `json:"token"`
}

// ListPage is one server page of a folder listing.
type ListPage struct {
	Entries []types.Entry `json:"InfoList"`
	Total   int64         `json:"Total"`
}

type downloadInfoRequest struct {
	DriveID   int             `json:"driveId"`
	Etag      string          `json:"etag"`
	FileID    types.FileID    `json:"fileId"`
	S3KeyFlag string          `json:"s3keyFlag"`
	Type      types.EntryKind `json:"type"`
	FileName  string          `json:"fileName"`
	Size      int64           `json:"size"`
}

type batchFileRef struct {
	FileID types.FileID `json:"fileId"`
}

type batchDownloadInfoRequest struct {
	FileIDList []batchFileRef `json:"fileIdList"`
}

type downloadInfoData struct {
	DownloadURL string `json:"DownloadUrl"`
}

// UploadRequest opens an upload session for a file.
type UploadRequest struct {
	DriveID      int                   `json:"driveId"`
	Etag         string                `json:"etag"`
	FileName     string                `json:"fileName"`
	ParentFileID types.FileID          `json:"parentFileId"`
	Size         int64                 `json:"size"`
	Type         types.EntryKind       `json:"type"`
	Duplicate    types.DuplicatePolicy `json:"duplicate"`
}

// UploadResponse is the data of a successful upload request. When Reuse is
// set the content already exists server-side and nothing has to be sent.
type UploadResponse struct {
	FileID      types.FileID `json:"FileId"`
	Reuse       bool         `json:"Reuse"`
	Bucket      string       `json:"Bucket"`
	StorageNode string       `json:"StorageNode"`
	Key         string       `json:"Key"`
	UploadID    string       `json:"UploadId"`
}

type partURLRequest struct {
	Bucket          string `json:"bucket"`
	Key             string `json:"key"`
	PartNumberStart int    `json:"partNumberStart"`
	PartNumberEnd   int    `json:"partNumberEnd"`
	UploadID        string `json:"uploadId"`
	StorageNode     string `json:"StorageNode"`
}

type partURLData struct {
	PresignedURLs map[string]string `json:"presignedUrls"`
}

type multipartRequest struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	UploadID    string `json:"uploadId"`
	StorageNode string `json:"storageNode"`
}

type uploadCompleteRequest struct {
	FileID types.FileID `json:"fileId"`
}

type trashRequest struct {
	DriveID           int         `json:"driveId"`
	FileTrashInfoList types.Entry `json:"fileTrashInfoList"`
	Operation         bool        `json:"operation"`
}

type shareRequest struct {
	DriveID    int    `json:"driveId"`
	Expiration string `json:"expiration"`
	FileIDList string `json:"fileIdList"`
	ShareName  string `json:"shareName"`
	SharePwd   string `json:"sharePwd"`
	Event      string `json:"event"`
}

type shareData struct {
	ShareKey string `json:"ShareKey"`
}

type mkdirRequest struct {
	DriveID      int          `json:"driveId"`
	Etag         string       `json:"etag"`
	FileName     string       `json:"fileName"`
	ParentFileID types.FileID `json:"parentFileId"`
	Size         int64        `json:"size"`
	Type         int          `json:"type"`
	Duplicate    int          `json:"duplicate"`
	NotReuse     bool         `json:"NotReuse"`
	Event        string       `json:"event"`
	OperateType  int          `json:"operateType"`
}

type mkdirData struct {
	Info struct {
		FileID types.FileID `json:"FileId"`
	} `json:"Info"`
}
