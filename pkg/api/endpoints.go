package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pan123/pkg/types"
)

const (
	pathSignIn            = "/b/api/user/sign_in"
	pathList              = "/api/file/list/new"
	pathRecycleList       = "/a/api/file/list/new"
	pathDownloadInfo      = "/a/api/file/download_info"
	pathBatchDownloadInfo = "/a/api/file/batch_download_info"
	pathUploadRequest     = "/b/api/file/upload_request"
	pathPartURLs          = "/b/api/file/s3_repare_upload_parts_batch"
	pathListUploadParts   = "/b/api/file/s3_list_upload_parts"
	pathCompleteMultipart = "/b/api/file/s3_complete_multipart_upload"
	pathUploadComplete    = "/b/api/file/upload_complete"
	pathTrash             = "/a/api/file/trash"
	pathShareCreate       = "/a/api/share/create"
	pathMkdir             = "/a/api/file/upload_request"

	shareExpiration = "2099-12-12T08:00:00+08:00"
	shareName       = "123云盘分享"
)

// SignIn exchanges credentials for a bearer token and installs it on the
// client. Unlike every other endpoint, success is code 200.
func (c *Client) SignIn(ctx context.Context, passport, password string) (string, error) {
	form := url.Values{}
	form.Set("type", "1")
	form.Set("passport", passport)
	form.Set("password", password)

	data, err := call[signInData](ctx, c, request{
		endpoint: "sign_in",
		method:   http.MethodPost,
		path:     pathSignIn,
		form:     form,
		success:  CodeSignInOK,
	})
	if err != nil {
		return "", err
	}
	if data.Token == "" {
		return "", &TransportError{Op: "sign_in", Err: fmt.Errorf("response carried no token")}
	}
	c.SetAuthorization(data.Token)
	return data.Token, nil
}

// ListPage fetches one page (1-based) of a folder's entries.
func (c *Client) ListPage(ctx context.Context, parent types.FileID, page, limit int) (*ListPage, error) {
	q := url.Values{}
	q.Set("driveId", "0")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("next", "0")
	q.Set("orderBy", "file_id")
	q.Set("orderDirection", "desc")
	q.Set("parentFileId", strconv.FormatInt(int64(parent), 10))
	q.Set("trashed", "false")
	q.Set("SearchData", "")
	q.Set("Page", strconv.Itoa(page))
	q.Set("OnlyLookAbnormalFile", "0")

	data, err := call[ListPage](ctx, c, request{
		endpoint: "list",
		method:   http.MethodGet,
		path:     pathList,
		query:    q,
		success:  CodeOK,
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// Recycle lists the first page of the recycle bin.
func (c *Client) Recycle(ctx context.Context) ([]types.Entry, error) {
	q := url.Values{}
	q.Set("driveId", "0")
	q.Set("limit", "100")
	q.Set("next", "0")
	q.Set("orderBy", "fileId")
	q.Set("orderDirection", "desc")
	q.Set("parentFileId", "0")
	q.Set("trashed", "true")
	q.Set("Page", "1")

	data, err := call[ListPage](ctx, c, request{
		endpoint: "recycle",
		method:   http.MethodGet,
		path:     pathRecycleList,
		query:    q,
		success:  CodeOK,
	})
	if err != nil {
		return nil, err
	}
	return data.Entries, nil
}

// DownloadInfo returns the redirect-page URL for a single file.
func (c *Client) DownloadInfo(ctx context.Context, e types.Entry) (string, error) {
	data, err := call[downloadInfoData](ctx, c, request{
		endpoint: "download_info",
		method:   http.MethodPost,
		path:     pathDownloadInfo,
		json: downloadInfoRequest{
			Etag:      e.Etag,
			FileID:    e.ID,
			S3KeyFlag: e.S3KeyFlag,
			Type:      e.Kind,
			FileName:  e.Name,
			Size:      e.Size,
		},
		success: CodeOK,
	})
	if err != nil {
		return "", err
	}
	return data.DownloadURL, nil
}

// BatchDownloadInfo returns the redirect-page URL of a zip of folder id.
func (c *Client) BatchDownloadInfo(ctx context.Context, id types.FileID) (string, error) {
	data, err := call[downloadInfoData](ctx, c, request{
		endpoint: "batch_download_info",
		method:   http.MethodPost,
		path:     pathBatchDownloadInfo,
		json:     batchDownloadInfoRequest{FileIDList: []batchFileRef{{FileID: id}}},
		success:  CodeOK,
	})
	if err != nil {
		return "", err
	}
	return data.DownloadURL, nil
}

// RequestUpload opens an upload session. A duplicate name under policy
// DuplicateFail surfaces as a ServiceError matching ErrDuplicateName.
func (c *Client) RequestUpload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	req.DriveID = 0
	req.Type = types.KindFile
	data, err := call[UploadResponse](ctx, c, request{
		endpoint: "upload_request",
		method:   http.MethodPost,
		path:     pathUploadRequest,
		json:     req,
		success:  CodeOK,
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// PartURL returns the pre-signed URL for one part number of a session.
func (c *Client) PartURL(ctx context.Context, s *types.UploadSession, part int) (string, error) {
	data, err := call[partURLData](ctx, c, request{
		endpoint: "part_url",
		method:   http.MethodPost,
		path:     pathPartURLs,
		json: partURLRequest{
			Bucket:          s.Bucket,
			Key:             s.Key,
			PartNumberStart: part,
			PartNumberEnd:   part + 1,
			UploadID:        s.UploadID,
			StorageNode:     s.StorageNode,
		},
		success: CodeOK,
	})
	if err != nil {
		return "", err
	}
	u, ok := data.PresignedURLs[strconv.Itoa(part)]
	if !ok || u == "" {
		return "", &TransportError{Op: "part_url", Err: fmt.Errorf("no presigned URL for part %d", part)}
	}
	return u, nil
}

// ListUploadParts performs the part-list handshake that precedes completion.
func (c *Client) ListUploadParts(ctx context.Context, s *types.UploadSession) error {
	_, err := call[json.RawMessage](ctx, c, request{
		endpoint: "list_upload_parts",
		method:   http.MethodPost,
		path:     pathListUploadParts,
		json:     multipartFor(s),
		success:  CodeOK,
	})
	return err
}

// CompleteMultipart asks storage to assemble the uploaded parts.
func (c *Client) CompleteMultipart(ctx context.Context, s *types.UploadSession) error {
	_, err := call[json.RawMessage](ctx, c, request{
		endpoint: "complete_multipart",
		method:   http.MethodPost,
		path:     pathCompleteMultipart,
		json:     multipartFor(s),
		success:  CodeOK,
	})
	return err
}

// UploadComplete closes the session for file id.
func (c *Client) UploadComplete(ctx context.Context, id types.FileID) error {
	_, err := call[json.RawMessage](ctx, c, request{
		endpoint: "upload_complete",
		method:   http.MethodPost,
		path:     pathUploadComplete,
		json:     uploadCompleteRequest{FileID: id},
		success:  CodeOK,
	})
	return err
}

func multipartFor(s *types.UploadSession) multipartRequest {
	return multipartRequest{
		Bucket:      s.Bucket,
		Key:         s.Key,
		UploadID:    s.UploadID,
		StorageNode: s.StorageNode,
	}
}

// Trash moves e to the recycle bin, or restores it when restore is set.
func (c *Client) Trash(ctx context.Context, e types.Entry, restore bool) error {
	endpoint := "trash"
	if restore {
		endpoint = "restore"
	}
	_, err := call[json.RawMessage](ctx, c, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     pathTrash,
		json:     trashRequest{FileTrashInfoList: e, Operation: !restore},
		success:  CodeOK,
	})
	return err
}

// CreateShare creates a never-expiring share of ids and returns its key.
func (c *Client) CreateShare(ctx context.Context, ids []types.FileID, password string) (string, error) {
	if len(ids) == 0 {
		return "", types.InvalidOperation("nothing to share")
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}

	data, err := call[shareData](ctx, c, request{
		endpoint: "share_create",
		method:   http.MethodPost,
		path:     pathShareCreate,
		json: shareRequest{
			Expiration: shareExpiration,
			FileIDList: strings.Join(parts, ","),
			ShareName:  shareName,
			SharePwd:   password,
			Event:      "shareCreate",
		},
		success: CodeOK,
	})
	if err != nil {
		return "", err
	}
	return data.ShareKey, nil
}

// ShareURL renders the public link for a share key.
func (c *Client) ShareURL(key string) string {
	return c.baseURL + "/s/" + key
}

// Mkdir creates folder name under parent and returns its id.
func (c *Client) Mkdir(ctx context.Context, parent types.FileID, name string) (types.FileID, error) {
	data, err := call[mkdirData](ctx, c, request{
		endpoint: "mkdir",
		method:   http.MethodPost,
		path:     pathMkdir,
		json: mkdirRequest{
			FileName:     name,
			ParentFileID: parent,
			Type:         1,
			Duplicate:    1,
			NotReuse:     true,
			Event:        "newCreateFolder",
			OperateType:  1,
		},
		success: CodeOK,
	})
	if err != nil {
		return 0, err
	}
	return data.Info.FileID, nil
}
